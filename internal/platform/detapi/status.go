package detapi

import (
	"encoding/json"
	"fmt"
)

// State is the remote service's overall task state.
type State string

// States reported by the status endpoint.
const (
	StateRunning   State = "running"
	StateFailed    State = "failed"
	StateProblem   State = "problem"
	StateCompleted State = "completed"
)

// Terminal reports whether the state is one the service will never leave.
func (s State) Terminal() bool {
	switch s {
	case StateFailed, StateProblem, StateCompleted:
		return true
	default:
		return false
	}
}

func validState(s State) bool {
	switch s {
	case StateRunning, StateFailed, StateProblem, StateCompleted:
		return true
	default:
		return false
	}
}

// OutputFileURLs are the three result-location references a completed task
// exposes: the full item list the service believes was submitted, the
// produced detections, and the items it explicitly marked failed.
type OutputFileURLs struct {
	Images       string `json:"images"`
	Detections   string `json:"detections"`
	FailedImages string `json:"failed_images"`
}

// Status is the typed form of one status response. It is a read-only fact
// about one task at one point in time; diffing the referenced documents
// is the reconciler's job.
type Status struct {
	TaskID          string
	State           State
	Note            string
	NumFailedShards int
	OutputFileURLs  OutputFileURLs
}

// Completed reports whether the task finished and published its outputs.
func (s *Status) Completed() bool {
	return s.State == StateCompleted
}

// statusEnvelope mirrors the raw wire shape. The message field is a
// progress string while the task is running and an object once results
// exist, so it decodes in two steps.
type statusEnvelope struct {
	TaskID string `json:"TaskId"`
	Status struct {
		RequestStatus State           `json:"request_status"`
		Message       json.RawMessage `json:"message"`
	} `json:"Status"`
}

type statusMessage struct {
	NumFailedShards int            `json:"num_failed_shards"`
	OutputFileURLs  OutputFileURLs `json:"output_file_urls"`
}

// ParseStatus decodes a raw status response into a Status. Responses that
// do not match the expected shape, including unknown state values, yield
// a *DecodeError.
func ParseStatus(data []byte) (*Status, error) {
	var env statusEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Op: "parse status", Err: err}
	}
	if !validState(env.Status.RequestStatus) {
		return nil, &DecodeError{
			Op:  "parse status",
			Err: fmt.Errorf("unknown request_status %q", env.Status.RequestStatus),
		}
	}

	status := &Status{
		TaskID: env.TaskID,
		State:  env.Status.RequestStatus,
	}

	if len(env.Status.Message) == 0 {
		return status, nil
	}

	var msg statusMessage
	if err := json.Unmarshal(env.Status.Message, &msg); err == nil {
		status.NumFailedShards = msg.NumFailedShards
		status.OutputFileURLs = msg.OutputFileURLs
		return status, nil
	}

	// Progress note form.
	var note string
	if err := json.Unmarshal(env.Status.Message, &note); err != nil {
		return nil, &DecodeError{
			Op:  "parse status",
			Err: fmt.Errorf("message is neither an object nor a string"),
		}
	}
	status.Note = note
	return status, nil
}
