package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wildobs/batchpilot/internal/items"
	"github.com/wildobs/batchpilot/internal/platform/blob"
	"github.com/wildobs/batchpilot/internal/platform/detapi"
)

// Options controls task construction.
type Options struct {
	// Validate enables the input-set checks: size bound and the
	// supported-item predicate.
	Validate bool

	// Classifier is the supported-item predicate, required when
	// Validate is set.
	Classifier *items.Classifier

	// MaxItems bounds the input set when Validate is set.
	MaxItems int

	// NameLimit bounds the sanitized name; 0 means DefaultNameLimit.
	NameLimit int

	// Synthesized marks a task created by reconciliation to cover
	// another task's missing items.
	Synthesized bool
}

// Task is one submittable, pollable unit of remote work.
type Task struct {
	mu sync.Mutex

	name        string
	itemList    []string
	synthesized bool

	// Exactly one input-source form is populated: a local list file
	// path, or the URL of a published list the service can read.
	localListPath string
	remoteListURL string

	request    *detapi.SubmitRequest
	remoteID   string
	submitting bool
	lastStatus *detapi.Status
}

// New creates an unsubmitted Task over itemList. The name is sanitized;
// itemList is copied and immutable afterward. With opts.Validate set, an
// oversized input set or an unsupported identifier yields a
// *ValidationError.
func New(name string, itemList []string, opts Options) (*Task, error) {
	clean := SanitizeName(name, opts.NameLimit)

	if opts.Validate {
		if opts.MaxItems > 0 && len(itemList) > opts.MaxItems {
			return nil, &ValidationError{
				Name:   clean,
				Reason: fmt.Sprintf("%d items exceeds the per-task maximum of %d", len(itemList), opts.MaxItems),
			}
		}
		if opts.Classifier != nil {
			for _, item := range itemList {
				if !opts.Classifier.Supported(item) {
					return nil, &ValidationError{
						Name:   clean,
						Reason: fmt.Sprintf("%q is not a supported item", item),
					}
				}
			}
		}
	}

	return &Task{
		name:        clean,
		itemList:    append([]string(nil), itemList...),
		synthesized: opts.Synthesized,
	}, nil
}

// NewFromListFile creates a Task whose input set is read from an
// item-list JSON file, recording the file as the local input source.
func NewFromListFile(name, path string, opts Options) (*Task, error) {
	list, err := items.ReadListFile(path)
	if err != nil {
		return nil, err
	}
	t, err := New(name, list, opts)
	if err != nil {
		return nil, err
	}
	t.localListPath = path
	return t, nil
}

// FromRemoteID adopts a task that was submitted outside this process.
// The task starts with an unknown input set; a poll fills in its status,
// and the submitted-items list becomes known once the remote side
// publishes it.
func FromRemoteID(ctx context.Context, client detapi.Client, remoteID, name string) (*Task, error) {
	if name == "" {
		name = remoteID
	}
	t := &Task{
		name:     SanitizeName(name, 0),
		remoteID: remoteID,
	}
	status, err := client.TaskStatus(ctx, remoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to adopt remote task %s: %w", remoteID, err)
	}
	t.lastStatus = status
	t.remoteListURL = status.OutputFileURLs.Images
	return t, nil
}

// Name returns the sanitized task name.
func (t *Task) Name() string { return t.name }

// Items returns a copy of the task's input set.
func (t *Task) Items() []string {
	return append([]string(nil), t.itemList...)
}

// ItemCount returns the size of the input set.
func (t *Task) ItemCount() int { return len(t.itemList) }

// Synthesized reports whether this task was created by reconciliation.
func (t *Task) Synthesized() bool { return t.synthesized }

// RemoteID returns the identifier assigned at submission, or "" before
// the task has been submitted.
func (t *Task) RemoteID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remoteID
}

// Submitted reports whether the task has acquired a remote identity.
func (t *Task) Submitted() bool { return t.RemoteID() != "" }

// LastStatus returns the most recently fetched status, or nil if the
// task has never been polled.
func (t *Task) LastStatus() *detapi.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastStatus
}

// Terminal reports whether the last fetched status is one the remote
// side will never leave.
func (t *Task) Terminal() bool {
	s := t.LastStatus()
	return s != nil && s.State.Terminal()
}

// Completed reports whether the task finished and published results.
func (t *Task) Completed() bool {
	s := t.LastStatus()
	return s != nil && s.Completed()
}

// RemoteListURL returns the published input-list URL, or "" if the list
// has not been published.
func (t *Task) RemoteListURL() string { return t.remoteListURL }

// PublishInputList uploads the input set as an item-list JSON document
// named blobName and records the returned URL as the task's remote input
// source.
func (t *Task) PublishInputList(ctx context.Context, uploader blob.Uploader, blobName string) error {
	data, err := items.EncodeList(t.itemList)
	if err != nil {
		return err
	}
	url, err := uploader.Upload(ctx, blobName, data)
	if err != nil {
		return fmt.Errorf("failed to publish input list for task %s: %w", t.name, err)
	}
	t.remoteListURL = url
	return nil
}

// BuildRequest produces the outbound submission payload. Item addressing
// is container-relative when containerSASURL is non-empty, otherwise the
// identifiers are treated as full URLs; exactly one form is encoded.
// fixed carries arbitrary additional service parameters.
func (t *Task) BuildRequest(caller string, fixed map[string]any, containerSASURL, pathPrefix string) (*detapi.SubmitRequest, error) {
	if t.remoteListURL == "" {
		return nil, fmt.Errorf("cannot build request for task %s: %w", t.name, ErrNoInputLocation)
	}

	req := &detapi.SubmitRequest{
		RequestName:            t.name,
		Caller:                 caller,
		ImagesRequestedJSONSAS: t.remoteListURL,
		ImagePathPrefix:        pathPrefix,
		Extra:                  fixed,
	}
	if containerSASURL != "" {
		req.InputContainerSAS = containerSASURL
	} else {
		req.UseURL = true
	}
	t.request = req
	return req, nil
}

// Submit sends the built request once and stores the assigned remote ID.
// Submission is not idempotent: a second call fails with
// ErrAlreadySubmitted rather than creating a duplicate remote task. The
// guard holds under concurrency: while one submission is in flight, any
// other call fails the same way. A failed submission clears the guard so
// the task may be retried.
func (t *Task) Submit(ctx context.Context, client detapi.Client) (string, error) {
	t.mu.Lock()
	if t.remoteID != "" || t.submitting {
		t.mu.Unlock()
		return "", fmt.Errorf("task %s: %w", t.name, ErrAlreadySubmitted)
	}
	req := t.request
	if req == nil {
		t.mu.Unlock()
		return "", fmt.Errorf("task %s: %w", t.name, ErrNoRequest)
	}
	t.submitting = true
	t.mu.Unlock()

	id, err := client.Submit(ctx, req)

	t.mu.Lock()
	t.submitting = false
	if err == nil {
		t.remoteID = id
	}
	t.mu.Unlock()

	if err != nil {
		return "", err
	}
	return id, nil
}

// Poll fetches the current remote status and stores it as the task's
// last status. It is a pure refresh, safe to call arbitrarily many
// times; the input set is never touched.
func (t *Task) Poll(ctx context.Context, client detapi.Client) (*detapi.Status, error) {
	id := t.RemoteID()
	if id == "" {
		return nil, fmt.Errorf("task %s: %w", t.name, ErrNotSubmitted)
	}

	status, err := client.TaskStatus(ctx, id)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.lastStatus = status
	t.mu.Unlock()
	return status, nil
}

// LogValue lets tasks appear as structured log attributes.
func (t *Task) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", t.name),
		slog.String("remote_id", t.RemoteID()),
		slog.Int("items", len(t.itemList)),
		slog.Bool("synthesized", t.synthesized),
	)
}
