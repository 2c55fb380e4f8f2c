package taskgroup

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wildobs/batchpilot/internal/reconcile"
	"github.com/wildobs/batchpilot/internal/task"
)

// State is a taskgroup's position in the coordinator's cycle.
type State string

// Taskgroup states.
const (
	StateBuilding    State = "building"
	StateSubmitting  State = "submitting"
	StatePolling     State = "polling"
	StateReconciling State = "reconciling"
	StateDone        State = "done"
)

// Group is the mutable ordered collection of tasks responsible for one
// input partition. It grows over time: reconciliation appends synthesized
// tasks for missing items. The union of input sets across its tasks
// always covers the originally requested items.
type Group struct {
	mu sync.Mutex

	id        uuid.UUID
	name      string
	requested []string

	state   State
	tasks   []*task.Task
	reports map[string]*reconcile.Report // keyed by remote ID

	// rejected records tasks whose submission the service explicitly
	// refused, keyed by task name. A rejected task is never retried; its
	// items surface in the aggregation missing set.
	rejected map[string]string
}

// NewGroup creates a group over the originally enumerated items of one
// partition.
func NewGroup(name string, requested []string) *Group {
	return &Group{
		id:        uuid.New(),
		name:      name,
		requested: append([]string(nil), requested...),
		state:     StateBuilding,
		reports:   make(map[string]*reconcile.Report),
		rejected:  make(map[string]string),
	}
}

// ID returns the group's run-unique identifier.
func (g *Group) ID() uuid.UUID { return g.id }

// Name returns the partition name.
func (g *Group) Name() string { return g.name }

// Requested returns a copy of the originally enumerated items.
func (g *Group) Requested() []string {
	return append([]string(nil), g.requested...)
}

// State returns the group's current state.
func (g *Group) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Group) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Tasks returns a snapshot of the group's task list. Iterating the
// snapshot is safe while reconciliation appends to the group.
func (g *Group) Tasks() []*task.Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*task.Task(nil), g.tasks...)
}

// append adds tasks under the group lock. All growth of the task list
// funnels through here: single-writer discipline.
func (g *Group) append(tasks ...*task.Task) {
	g.mu.Lock()
	g.tasks = append(g.tasks, tasks...)
	g.mu.Unlock()
}

// recordReport stores the reconciliation outcome for a completed task.
func (g *Group) recordReport(remoteID string, report *reconcile.Report) {
	g.mu.Lock()
	g.reports[remoteID] = report
	g.mu.Unlock()
}

// markRejected records a task whose submission the service refused.
func (g *Group) markRejected(taskName, reason string) {
	g.mu.Lock()
	g.rejected[taskName] = reason
	g.mu.Unlock()
}

// Rejected returns the rejected tasks by name with the service's reason.
func (g *Group) Rejected() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.rejected))
	for name, reason := range g.rejected {
		out[name] = reason
	}
	return out
}

func (g *Group) isRejected(taskName string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.rejected[taskName]
	return ok
}

// Report returns the reconciliation report for a remote ID, if any.
func (g *Group) Report(remoteID string) (*reconcile.Report, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.reports[remoteID]
	return r, ok
}

// Warnings returns all reconciliation warnings recorded across the group.
func (g *Group) Warnings() []reconcile.Warning {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []reconcile.Warning
	for _, r := range g.reports {
		out = append(out, r.Warnings...)
	}
	return out
}

// Settled reports whether every task in the group has reached a final
// disposition: completed and reconciled with an accepted report,
// terminally failed on the remote side, or rejected at submission (for
// the latter two the shortfall surfaces in the aggregation cross-check).
// A group with no tasks has nothing left to do and is settled.
func (g *Group) Settled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.tasks {
		if !t.Terminal() {
			if _, rejected := g.rejected[t.Name()]; rejected {
				continue
			}
			return false
		}
		if t.Completed() {
			report, ok := g.reports[t.RemoteID()]
			if !ok || !report.Accepted {
				return false
			}
		}
	}
	return true
}

// OutputLocations maps each completed task's name to the URL of its
// produced-detections document, the hand-off point to aggregation.
func (g *Group) OutputLocations() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string)
	for _, t := range g.tasks {
		if status := t.LastStatus(); status != nil && status.Completed() {
			out[t.Name()] = status.OutputFileURLs.Detections
		}
	}
	return out
}
