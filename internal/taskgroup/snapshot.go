package taskgroup

import "github.com/wildobs/batchpilot/internal/reconcile"

// TaskSnapshot is a point-in-time, read-only view of one task for
// operator visibility.
type TaskSnapshot struct {
	Name         string `json:"name"`
	RemoteID     string `json:"remote_id,omitempty"`
	State        string `json:"state"`
	Items        int    `json:"items"`
	Missing      int    `json:"missing"`
	FailedShards int    `json:"failed_shards"`
	Synthesized  bool   `json:"synthesized"`
	Accepted     bool   `json:"accepted"`
	Rejection    string `json:"rejection,omitempty"`
}

// Snapshot is a point-in-time view of one taskgroup.
type Snapshot struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	State     State               `json:"state"`
	Requested int                 `json:"requested_items"`
	Tasks     []TaskSnapshot      `json:"tasks"`
	Warnings  []reconcile.Warning `json:"warnings,omitempty"`
}

// Snapshot captures the group's current progress.
func (g *Group) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		ID:        g.id.String(),
		Name:      g.name,
		State:     g.state,
		Requested: len(g.requested),
		Tasks:     make([]TaskSnapshot, 0, len(g.tasks)),
	}

	for _, t := range g.tasks {
		ts := TaskSnapshot{
			Name:        t.Name(),
			RemoteID:    t.RemoteID(),
			State:       "unsubmitted",
			Items:       t.ItemCount(),
			Synthesized: t.Synthesized(),
		}
		if status := t.LastStatus(); status != nil {
			ts.State = string(status.State)
			ts.FailedShards = status.NumFailedShards
		} else if reason, ok := g.rejected[t.Name()]; ok {
			ts.State = "rejected"
			ts.Rejection = reason
		} else if ts.RemoteID != "" {
			ts.State = "submitted"
		}
		if report, ok := g.reports[t.RemoteID()]; ok {
			ts.Missing = len(report.Missing)
			ts.Accepted = report.Accepted
		}
		snap.Tasks = append(snap.Tasks, ts)
	}

	for _, r := range g.reports {
		snap.Warnings = append(snap.Warnings, r.Warnings...)
	}
	return snap
}
