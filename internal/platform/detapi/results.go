package detapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrResultsNotReady is returned when result resolution is attempted on a
// task the service has not reported completed.
var ErrResultsNotReady = errors.New("task has not completed, results are not available")

// Fetcher retrieves a document by URL. Satisfied by the blob storage
// client; tests supply an in-memory implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DetectionEntry is one produced result. Only the item identifier is
// interpreted here; Raw preserves the full entry for output combination.
type DetectionEntry struct {
	File string
	Raw  json.RawMessage
}

// ResultSet is a completed task's three output documents resolved to
// concrete item lists.
type ResultSet struct {
	// Submitted is the full list of items the service confirms it
	// received for this task.
	Submitted []string

	// Detections are the produced results, one entry per item.
	Detections []DetectionEntry

	// Failed are the items the service explicitly marked failed.
	Failed []string
}

// Produced returns the identifiers of all items with a produced result.
func (r *ResultSet) Produced() []string {
	out := make([]string, len(r.Detections))
	for i, d := range r.Detections {
		out[i] = d.File
	}
	return out
}

// ResolveResults fetches and parses the three output documents referenced
// by a completed status. Fetch failures surface as *TransportError,
// unparseable documents as *DecodeError.
func ResolveResults(ctx context.Context, fetcher Fetcher, status *Status) (*ResultSet, error) {
	if !status.Completed() {
		return nil, fmt.Errorf("%w: state is %q", ErrResultsNotReady, status.State)
	}
	urls := status.OutputFileURLs
	if urls.Images == "" || urls.Detections == "" || urls.FailedImages == "" {
		return nil, &DecodeError{
			Op:  "resolve results",
			Err: errors.New("completed status is missing output file URLs"),
		}
	}

	submitted, err := fetchItemList(ctx, fetcher, urls.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve submitted-items list: %w", err)
	}
	failed, err := fetchItemList(ctx, fetcher, urls.FailedImages)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve failed-items list: %w", err)
	}
	detections, err := fetchDetections(ctx, fetcher, urls.Detections)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve detections: %w", err)
	}

	return &ResultSet{
		Submitted:  submitted,
		Detections: detections,
		Failed:     failed,
	}, nil
}

func fetchItemList(ctx context.Context, fetcher Fetcher, url string) ([]string, error) {
	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &TransportError{Op: "fetch", URL: url, Err: err}
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &DecodeError{Op: "fetch " + url, Err: err}
	}
	return list, nil
}

// detectionsDocument is the produced-results wire shape: an object with an
// "images" array of per-item entries carrying at least a "file" field.
type detectionsDocument struct {
	Images []json.RawMessage `json:"images"`
}

func fetchDetections(ctx context.Context, fetcher Fetcher, url string) ([]DetectionEntry, error) {
	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &TransportError{Op: "fetch", URL: url, Err: err}
	}
	var doc detectionsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Op: "fetch " + url, Err: err}
	}

	entries := make([]DetectionEntry, 0, len(doc.Images))
	for i, raw := range doc.Images {
		var entry struct {
			File string `json:"file"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil || entry.File == "" {
			return nil, &DecodeError{
				Op:  "fetch " + url,
				Err: fmt.Errorf("detection entry %d has no file field", i),
			}
		}
		entries = append(entries, DetectionEntry{File: entry.File, Raw: raw})
	}
	return entries, nil
}
