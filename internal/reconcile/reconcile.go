package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/wildobs/batchpilot/internal/items"
	"github.com/wildobs/batchpilot/internal/platform/detapi"
	"github.com/wildobs/batchpilot/internal/task"
)

// WarningKind classifies a reconciliation warning.
type WarningKind string

// Reconciliation warning kinds. Warnings are always recorded, never
// fatal.
const (
	// WarningFailedNotSubset flags a remote-side inconsistency: items
	// explicitly marked failed that do not appear in the missing set.
	WarningFailedNotSubset WarningKind = "failed_items_not_subset_of_missing"

	// WarningResubmitHeld flags a synthesized follow-up task held for
	// operator review because automatic resubmission is disabled.
	WarningResubmitHeld WarningKind = "resubmission_held_for_review"
)

// Warning is one recorded reconciliation anomaly.
type Warning struct {
	Kind    WarningKind
	Message string
}

// Config holds the reconciliation policy knobs.
type Config struct {
	// MissingTolerance is the missing-item count below which a task is
	// accepted as effectively complete.
	MissingTolerance int

	// ImagesPerShard converts the failed-shard count into an advisory
	// order-of-magnitude item estimate.
	ImagesPerShard int

	// AutoResubmit controls whether a synthesized follow-up task is
	// handed back for automatic submission or held for operator review.
	AutoResubmit bool

	// NameLimit bounds synthesized task names; 0 means the default.
	NameLimit int
}

// Report is the outcome of reconciling one completed task.
type Report struct {
	TaskName string
	RemoteID string

	// SubmittedCount and ProducedCount are the remote side's view.
	SubmittedCount int
	ProducedCount  int

	// Missing is the sorted set of items the remote side confirms it
	// received but produced no result for.
	Missing []string

	// Failed is the set of items the remote side explicitly marked
	// failed.
	Failed []string

	// FailedShards and EstimatedShardItems are advisory only; they
	// never drive the resubmission decision.
	FailedShards        int
	EstimatedShardItems int

	Warnings []Warning

	// Accepted means the task is treated as effectively complete:
	// missing is within tolerance, or the follow-up is held for review.
	Accepted bool

	// Resubmit is the synthesized follow-up task covering Missing, nil
	// when no follow-up is warranted. When Held is set the task was
	// synthesized but must not be submitted automatically.
	Resubmit *task.Task
	Held     bool
}

// Warn records a warning on the report.
func (r *Report) Warn(kind WarningKind, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// Reconciler applies the reconciliation policy to completed tasks.
type Reconciler struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Reconciler with the given policy.
func New(cfg Config, logger *slog.Logger) *Reconciler {
	return &Reconciler{cfg: cfg, logger: logger}
}

// Reconcile diffs a completed task's resolved results and decides on
// follow-up work.
//
// The missing set is computed from the remote side's own submitted-items
// list, not the task's local input set: the two can legitimately diverge,
// and that divergence is itself diagnostic. When the missing count
// reaches the tolerance, exactly one new task is synthesized over the
// missing items, named deterministically from the original task's name
// and remote ID so repeated reconciliation passes cannot collide.
func (r *Reconciler) Reconcile(t *task.Task, results *detapi.ResultSet) (*Report, error) {
	status := t.LastStatus()
	if status == nil || !status.Completed() {
		return nil, fmt.Errorf("task %s: %w", t.Name(), detapi.ErrResultsNotReady)
	}

	produced := results.Produced()
	report := &Report{
		TaskName:            t.Name(),
		RemoteID:            t.RemoteID(),
		SubmittedCount:      len(results.Submitted),
		ProducedCount:       len(produced),
		Missing:             items.Difference(results.Submitted, produced),
		Failed:              results.Failed,
		FailedShards:        status.NumFailedShards,
		EstimatedShardItems: status.NumFailedShards * r.cfg.ImagesPerShard,
	}

	if !items.Subset(results.Failed, report.Missing) {
		report.Warn(WarningFailedNotSubset,
			"task %s: %d explicitly-failed items are not all in the missing set",
			t.Name(), len(results.Failed))
	}

	if report.FailedShards > 0 {
		r.logger.Warn("task has failed shards",
			"task", t,
			"failed_shards", report.FailedShards,
			"estimated_items", report.EstimatedShardItems)
	}

	r.logger.Info("reconciled task",
		"task", t,
		"submitted", report.SubmittedCount,
		"produced", report.ProducedCount,
		"missing", len(report.Missing),
		"explicitly_failed", len(report.Failed))

	// Fixed point: nothing missing, nothing to do.
	if len(report.Missing) == 0 {
		report.Accepted = true
		return report, nil
	}

	if len(report.Missing) < r.cfg.MissingTolerance {
		report.Accepted = true
		r.logger.Info("missing items within tolerance, accepting task",
			"task", t,
			"missing", len(report.Missing),
			"tolerance", r.cfg.MissingTolerance)
		return report, nil
	}

	followUp, err := r.synthesize(t, report.Missing)
	if err != nil {
		return nil, err
	}
	report.Resubmit = followUp

	if !r.cfg.AutoResubmit {
		report.Held = true
		report.Accepted = true
		report.Warn(WarningResubmitHeld,
			"task %s: %d missing items warrant resubmission; automatic resubmission is disabled",
			t.Name(), len(report.Missing))
	}

	return report, nil
}

// synthesize builds the follow-up task over missing. The result is
// exactly one task, never re-chunked: its size is bounded by the original
// task's input set, which already respected the per-task maximum.
func (r *Reconciler) synthesize(orig *task.Task, missing []string) (*task.Task, error) {
	name := fmt.Sprintf("%s_%s_missing_images", orig.Name(), orig.RemoteID())
	followUp, err := task.New(name, missing, task.Options{
		NameLimit:   r.cfg.NameLimit,
		Synthesized: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize follow-up for task %s: %w", orig.Name(), err)
	}
	return followUp, nil
}
