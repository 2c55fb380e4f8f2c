package detapi

import (
	"encoding/json"
	"errors"
)

// ErrAmbiguousInputSource is returned when a request would carry both a
// container reference and the use-URL flag, or neither.
var ErrAmbiguousInputSource = errors.New(
	"exactly one of input container URL or use-URL addressing must be set")

// SubmitRequest is the outbound payload of the submission endpoint.
// Exactly one of InputContainerSAS (item paths are container-relative) or
// UseURL (item identifiers are full URLs) must be encoded. Extra carries
// arbitrary additional service parameters, merged into the top-level JSON
// object; named fields win on collision.
type SubmitRequest struct {
	RequestName            string
	Caller                 string
	ImagesRequestedJSONSAS string
	InputContainerSAS      string
	UseURL                 bool
	ImagePathPrefix        string
	Extra                  map[string]any
}

// MarshalJSON flattens Extra into the request object alongside the named
// fields.
func (r *SubmitRequest) MarshalJSON() ([]byte, error) {
	if r.UseURL == (r.InputContainerSAS != "") {
		return nil, ErrAmbiguousInputSource
	}

	obj := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		obj[k] = v
	}
	obj["request_name"] = r.RequestName
	obj["caller"] = r.Caller
	obj["images_requested_json_sas"] = r.ImagesRequestedJSONSAS
	if r.UseURL {
		obj["use_url"] = true
	} else {
		obj["input_container_sas"] = r.InputContainerSAS
	}
	if r.ImagePathPrefix != "" {
		obj["image_path_prefix"] = r.ImagePathPrefix
	}
	return json.Marshal(obj)
}
