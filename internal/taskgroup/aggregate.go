package taskgroup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wildobs/batchpilot/internal/items"
	"github.com/wildobs/batchpilot/internal/platform/detapi"
)

// Aggregate is the combined output of one settled taskgroup.
type Aggregate struct {
	Group string

	// Entries are the merged detection results across all completed
	// tasks, one per item. A resubmitted item can legitimately appear
	// in two tasks' outputs; the first occurrence wins.
	Entries []detapi.DetectionEntry

	// ResultItems are the identifiers with a produced result.
	ResultItems []string

	// Missing are requested items with no produced result, recorded for
	// audit even when within tolerance.
	Missing []string

	// Warnings are soft aggregation findings (missing over tolerance).
	Warnings []string
}

// EncodeDetections renders the combined results in the detections
// document format, ready to be written out or shared downstream.
func (a *Aggregate) EncodeDetections() ([]byte, error) {
	doc := struct {
		Images []json.RawMessage `json:"images"`
	}{Images: make([]json.RawMessage, len(a.Entries))}
	for i, e := range a.Entries {
		doc.Images[i] = e.Raw
	}
	data, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode combined detections: %w", err)
	}
	return data, nil
}

// Aggregate fetches every completed task's detections, merges them into
// one result set, and cross-checks the group invariants: a result item
// that was never requested is a hard *InvariantViolationError (the
// combination step aborts for this group only); a missing count at or
// over tolerance is a soft warning.
func (c *Coordinator) Aggregate(ctx context.Context, g *Group) (*Aggregate, error) {
	agg := &Aggregate{Group: g.Name()}
	seen := make(map[string]struct{})

	for _, t := range g.Tasks() {
		status := t.LastStatus()
		if status == nil || !status.Completed() {
			continue
		}
		results, err := detapi.ResolveResults(ctx, c.store, status)
		if err != nil {
			return nil, fmt.Errorf("failed to pull results for task %s: %w", t.Name(), err)
		}
		for _, entry := range results.Detections {
			if _, dup := seen[entry.File]; dup {
				continue
			}
			seen[entry.File] = struct{}{}
			agg.Entries = append(agg.Entries, entry)
			agg.ResultItems = append(agg.ResultItems, entry.File)
		}
	}

	requested := g.Requested()
	if extra := items.Difference(agg.ResultItems, requested); len(extra) > 0 {
		return nil, &InvariantViolationError{Group: g.Name(), Extra: extra}
	}

	agg.Missing = items.Difference(requested, agg.ResultItems)
	if len(agg.Missing) >= c.cfg.MissingTolerance && len(agg.Missing) > 0 {
		warning := fmt.Sprintf("taskgroup %s: %d requested items have no result (tolerance %d)",
			g.Name(), len(agg.Missing), c.cfg.MissingTolerance)
		agg.Warnings = append(agg.Warnings, warning)
		c.logger.Warn("aggregation missing items over tolerance",
			"group", g.Name(),
			"missing", len(agg.Missing),
			"tolerance", c.cfg.MissingTolerance)
	}

	c.logger.Info("aggregated taskgroup outputs",
		"group", g.Name(),
		"result_items", len(agg.ResultItems),
		"missing", len(agg.Missing))
	return agg, nil
}
