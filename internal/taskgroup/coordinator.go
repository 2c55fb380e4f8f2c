package taskgroup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/wildobs/batchpilot/internal/chunk"
	"github.com/wildobs/batchpilot/internal/config"
	"github.com/wildobs/batchpilot/internal/items"
	"github.com/wildobs/batchpilot/internal/platform/blob"
	"github.com/wildobs/batchpilot/internal/platform/detapi"
	"github.com/wildobs/batchpilot/internal/reconcile"
	"github.com/wildobs/batchpilot/internal/task"
)

// Coordinator sequences the lifecycle of taskgroups: building tasks from
// a partition's item list, submitting them, polling, reconciling, and
// feeding synthesized follow-up tasks back into the cycle.
type Coordinator struct {
	cfg        config.TaskConfig
	caller     string
	container  string // read SAS URL handed to the service; "" selects use_url addressing
	pathPrefix string
	inputRoot  string
	extra      map[string]any

	client     detapi.Client
	store      blob.Store
	rec        *reconcile.Reconciler
	classifier *items.Classifier
	logger     *slog.Logger

	// sem bounds concurrent remote calls across one coordinator.
	sem chan struct{}

	mu     sync.Mutex
	groups []*Group
}

// New wires a Coordinator from the application config and its
// collaborators.
func New(cfg *config.Config, client detapi.Client, store blob.Store, classifier *items.Classifier, logger *slog.Logger) *Coordinator {
	container := ""
	if cfg.Storage.ContainerURL != "" {
		container = cfg.Storage.ContainerURL + "?" + cfg.Storage.ReadToken
	}
	rec := reconcile.New(reconcile.Config{
		MissingTolerance: cfg.Tasks.MissingTolerance,
		ImagesPerShard:   cfg.Tasks.ImagesPerShard,
		AutoResubmit:     cfg.Tasks.AutoResubmit,
		NameLimit:        cfg.Tasks.NameLengthLimit,
	}, logger)

	return &Coordinator{
		cfg:        cfg.Tasks,
		caller:     cfg.Remote.Caller,
		container:  container,
		pathPrefix: cfg.Storage.ImagePathPrefix,
		inputRoot:  cfg.Storage.InputBlobRoot,
		client:     client,
		store:      store,
		rec:        rec,
		classifier: classifier,
		logger:     logger,
		sem:        make(chan struct{}, cfg.Tasks.Concurrency),
	}
}

// SetExtraParams sets additional fixed service parameters carried on
// every submission request (e.g. a model version override).
func (c *Coordinator) SetExtraParams(extra map[string]any) {
	c.extra = extra
}

// Groups returns a snapshot of all groups this coordinator has built.
func (c *Coordinator) Groups() []*Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Group(nil), c.groups...)
}

// Build chunks a partition's item list, constructs one validated task per
// chunk, and publishes each task's input list where the service can read
// it. The returned group is ready for Submit.
func (c *Coordinator) Build(ctx context.Context, name string, list []string) (*Group, error) {
	base := task.SanitizeName(name, c.cfg.NameLengthLimit)
	group := NewGroup(base, list)

	chunks, err := chunk.Divide(list, c.cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk partition %s: %w", base, err)
	}

	for _, ch := range chunks {
		taskName := fmt.Sprintf("%s_chunk%03d", base, ch.Index)
		t, err := task.New(taskName, ch.Items, task.Options{
			Validate:   true,
			Classifier: c.classifier,
			MaxItems:   c.cfg.MaxItemsPerTask,
			NameLimit:  c.cfg.NameLengthLimit,
		})
		if err != nil {
			return nil, err
		}
		if err := c.publish(ctx, group, t); err != nil {
			return nil, err
		}
		group.append(t)
	}

	c.logger.Info("built taskgroup",
		"group", base,
		"group_id", group.ID(),
		"items", len(list),
		"tasks", len(chunks))

	c.mu.Lock()
	c.groups = append(c.groups, group)
	c.mu.Unlock()

	group.setState(StateSubmitting)
	return group, nil
}

// publish uploads a task's input list under the configured blob root.
func (c *Coordinator) publish(ctx context.Context, g *Group, t *task.Task) error {
	blobName := path.Join(c.inputRoot, g.Name(), t.Name()+".json")
	return t.PublishInputList(ctx, c.store, blobName)
}

// Submit submits every unsubmitted task in the group. Per-task failures
// are collected and returned keyed by task name; one task's failure
// never blocks its siblings. An explicit service rejection is final: the
// task is recorded as rejected on the group and never retried, while
// transport-class failures leave the task pending for the next cycle.
func (c *Coordinator) Submit(ctx context.Context, g *Group) map[string]error {
	g.setState(StateSubmitting)

	var pending []*task.Task
	for _, t := range g.Tasks() {
		if !t.Submitted() && !g.isRejected(t.Name()) {
			pending = append(pending, t)
		}
	}

	errs := c.forEach(ctx, pending, func(ctx context.Context, t *task.Task) error {
		if _, err := t.BuildRequest(c.caller, c.extra, c.container, c.pathPrefix); err != nil {
			return err
		}
		_, err := t.Submit(ctx, c.client)
		return err
	})

	for name, err := range errs {
		var subErr *detapi.SubmissionError
		if errors.As(err, &subErr) {
			g.markRejected(name, subErr.Error())
			c.logger.Error("task submission rejected, not retrying",
				"task_name", name, "error", err)
			continue
		}
		c.logger.Error("task submission failed", "task_name", name, "error", err)
	}
	return errs
}

// Poll refreshes the status of every submitted, non-terminal task in the
// group. Safe to call arbitrarily often; each poll is a pure read.
func (c *Coordinator) Poll(ctx context.Context, g *Group) map[string]error {
	g.setState(StatePolling)

	var pending []*task.Task
	for _, t := range g.Tasks() {
		if t.Submitted() && !t.Terminal() {
			pending = append(pending, t)
		}
	}

	errs := c.forEach(ctx, pending, func(ctx context.Context, t *task.Task) error {
		status, err := t.Poll(ctx, c.client)
		if err != nil {
			return err
		}
		c.logger.Debug("polled task", "task", t, "state", string(status.State))
		return nil
	})

	for name, err := range errs {
		c.logger.Warn("task poll failed", "task_name", name, "error", err)
	}
	return errs
}

// Reconcile runs the reconciler over every newly completed task and
// appends any synthesized follow-up tasks to the group.
//
// Processing is two-phase to keep iteration and growth apart: completed
// tasks are collected from a snapshot first, then synthesized tasks are
// appended under the group lock. A synthesized task covers exactly the
// missing items of one reconciled task and is never re-chunked, so the
// feedback edge is bounded by remote failure episodes, not input size.
// Returns the number of tasks appended.
func (c *Coordinator) Reconcile(ctx context.Context, g *Group) (int, map[string]error) {
	g.setState(StateReconciling)

	var completed []*task.Task
	for _, t := range g.Tasks() {
		if !t.Completed() {
			continue
		}
		if _, done := g.Report(t.RemoteID()); !done {
			completed = append(completed, t)
		}
	}

	var (
		mu        sync.Mutex
		followUps []*task.Task
	)
	errs := c.forEach(ctx, completed, func(ctx context.Context, t *task.Task) error {
		results, err := detapi.ResolveResults(ctx, c.store, t.LastStatus())
		if err != nil {
			return err
		}
		report, err := c.rec.Reconcile(t, results)
		if err != nil {
			return err
		}
		g.recordReport(t.RemoteID(), report)

		if report.Resubmit == nil || report.Held {
			return nil
		}
		if err := c.publish(ctx, g, report.Resubmit); err != nil {
			return err
		}
		mu.Lock()
		followUps = append(followUps, report.Resubmit)
		mu.Unlock()
		return nil
	})

	if len(followUps) > 0 {
		g.append(followUps...)
		c.logger.Info("appended follow-up tasks for missing items",
			"group", g.Name(),
			"count", len(followUps))
	}

	for name, err := range errs {
		c.logger.Error("task reconciliation failed", "task_name", name, "error", err)
	}
	return len(followUps), errs
}

// Run drives the group through submit, poll, and reconcile rounds until
// every task has settled or ctx is cancelled. Cancellation is safe:
// tasks keep their last known state and a later Run picks up where this
// one stopped.
func (c *Coordinator) Run(ctx context.Context, g *Group) error {
	for {
		c.Submit(ctx, g)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		c.Poll(ctx, g)
		c.Reconcile(ctx, g)

		if g.Settled() {
			g.setState(StateDone)
			c.logger.Info("taskgroup done", "group", g.Name(), "tasks", len(g.Tasks()))
			return nil
		}
	}
}

// forEach runs fn over tasks concurrently, bounded by the coordinator's
// concurrency limit, and collects per-task errors by task name.
func (c *Coordinator) forEach(ctx context.Context, tasks []*task.Task, fn func(context.Context, *task.Task) error) map[string]error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs = make(map[string]error)
	)
	for _, t := range tasks {
		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			mu.Lock()
			errs[t.Name()] = ctx.Err()
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(t *task.Task) {
			defer wg.Done()
			defer func() { <-c.sem }()
			if err := fn(ctx, t); err != nil {
				mu.Lock()
				errs[t.Name()] = err
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()

	if len(errs) == 0 {
		return nil
	}
	return errs
}
