package task

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildobs/batchpilot/internal/items"
	"github.com/wildobs/batchpilot/internal/platform/blob"
	"github.com/wildobs/batchpilot/internal/platform/detapi"
)

// mockClient implements detapi.Client for task tests.
type mockClient struct {
	submitID   string
	submitErr  error
	submits    int
	lastSubmit *detapi.SubmitRequest

	status    *detapi.Status
	statusErr error
	polls     int
}

func (m *mockClient) Submit(_ context.Context, req *detapi.SubmitRequest) (string, error) {
	m.submits++
	m.lastSubmit = req
	if m.submitErr != nil {
		return "", m.submitErr
	}
	return m.submitID, nil
}

func (m *mockClient) TaskStatus(_ context.Context, _ string) (*detapi.Status, error) {
	m.polls++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

func testClassifier(t *testing.T) *items.Classifier {
	t.Helper()
	c, err := items.NewClassifier(nil)
	require.NoError(t, err)
	return c
}

func makeItems(n int) []string {
	list := make([]string, n)
	for i := range list {
		list[i] = fmt.Sprintf("cam/%05d.jpg", i)
	}
	return list
}

func TestNewSanitizesName(t *testing.T) {
	task, err := New("survey.2019 site/a", []string{"a.jpg"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "survey2019sitea", task.Name())
}

func TestNewCopiesInputSet(t *testing.T) {
	list := []string{"a.jpg", "b.jpg"}
	task, err := New("t", list, Options{})
	require.NoError(t, err)

	list[0] = "mutated.jpg"
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, task.Items())

	// Mutating the accessor's result must not leak back either.
	got := task.Items()
	got[1] = "mutated.jpg"
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, task.Items())
}

func TestNewValidation(t *testing.T) {
	classifier := testClassifier(t)

	t.Run("accepts exactly max items", func(t *testing.T) {
		task, err := New("t", makeItems(10), Options{
			Validate:   true,
			Classifier: classifier,
			MaxItems:   10,
		})
		require.NoError(t, err)
		assert.Equal(t, 10, task.ItemCount())
	})

	t.Run("rejects max plus one", func(t *testing.T) {
		_, err := New("t", makeItems(11), Options{
			Validate:   true,
			Classifier: classifier,
			MaxItems:   10,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Reason, "per-task maximum")
	})

	t.Run("rejects unsupported item", func(t *testing.T) {
		_, err := New("t", []string{"a.jpg", "notes.txt"}, Options{
			Validate:   true,
			Classifier: classifier,
			MaxItems:   10,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Reason, "notes.txt")
	})

	t.Run("no validation when disabled", func(t *testing.T) {
		_, err := New("t", []string{"notes.txt"}, Options{})
		assert.NoError(t, err)
	})
}

func TestNewFromListFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.json")
	require.NoError(t, items.WriteListFile(path, []string{"a.jpg", "b.jpg"}))

	task, err := NewFromListFile("t", path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, task.ItemCount())
	assert.Equal(t, path, task.localListPath)
	assert.Empty(t, task.RemoteListURL())
}

func TestPublishInputList(t *testing.T) {
	store := blob.NewMemoryStore()
	task, err := New("t", []string{"a.jpg", "b.jpg"}, Options{})
	require.NoError(t, err)

	require.NoError(t, task.PublishInputList(context.Background(), store, "api_inputs/t.json"))
	assert.Equal(t, "memory://api_inputs/t.json", task.RemoteListURL())

	// The published document must round-trip byte-identically through
	// the item-list format.
	data, err := store.Fetch(context.Background(), task.RemoteListURL())
	require.NoError(t, err)
	list, err := items.DecodeList(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, list)
}

func TestBuildRequestAddressing(t *testing.T) {
	newPublished := func(t *testing.T) *Task {
		t.Helper()
		task, err := New("t", []string{"a.jpg"}, Options{})
		require.NoError(t, err)
		require.NoError(t, task.PublishInputList(context.Background(), blob.NewMemoryStore(), "t.json"))
		return task
	}

	t.Run("container addressing", func(t *testing.T) {
		task := newPublished(t)
		req, err := task.BuildRequest("caller@org", nil, "https://acct.blob/container?sas", "")
		require.NoError(t, err)
		assert.Equal(t, "https://acct.blob/container?sas", req.InputContainerSAS)
		assert.False(t, req.UseURL)
	})

	t.Run("url addressing", func(t *testing.T) {
		task := newPublished(t)
		req, err := task.BuildRequest("caller@org", nil, "", "")
		require.NoError(t, err)
		assert.True(t, req.UseURL)
		assert.Empty(t, req.InputContainerSAS)
	})

	t.Run("unpublished list", func(t *testing.T) {
		task, err := New("t", []string{"a.jpg"}, Options{})
		require.NoError(t, err)
		_, err = task.BuildRequest("caller@org", nil, "", "")
		assert.ErrorIs(t, err, ErrNoInputLocation)
	})
}

func TestSubmitAtMostOnce(t *testing.T) {
	client := &mockClient{submitID: "9999"}
	task, err := New("t", []string{"a.jpg"}, Options{})
	require.NoError(t, err)
	require.NoError(t, task.PublishInputList(context.Background(), blob.NewMemoryStore(), "t.json"))
	_, err = task.BuildRequest("caller@org", nil, "", "")
	require.NoError(t, err)

	id, err := task.Submit(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "9999", id)
	assert.Equal(t, "9999", task.RemoteID())
	assert.True(t, task.Submitted())

	// The second call must not reach the remote service at all.
	_, err = task.Submit(context.Background(), client)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, 1, client.submits)
}

// gatedClient blocks inside Submit until released, so a test can hold a
// submission in flight while probing the task from another goroutine.
type gatedClient struct {
	entered chan struct{}
	release chan struct{}
	submits int32
}

func newGatedClient() *gatedClient {
	return &gatedClient{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedClient) Submit(_ context.Context, _ *detapi.SubmitRequest) (string, error) {
	atomic.AddInt32(&g.submits, 1)
	close(g.entered)
	<-g.release
	return "4242", nil
}

func (g *gatedClient) TaskStatus(_ context.Context, _ string) (*detapi.Status, error) {
	return nil, errors.New("not polled in this test")
}

func TestSubmitConcurrentCallsCreateOneRemoteTask(t *testing.T) {
	client := newGatedClient()
	task, err := New("t", []string{"a.jpg"}, Options{})
	require.NoError(t, err)
	require.NoError(t, task.PublishInputList(context.Background(), blob.NewMemoryStore(), "t.json"))
	_, err = task.BuildRequest("caller@org", nil, "", "")
	require.NoError(t, err)

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := task.Submit(context.Background(), client)
		done <- result{id, err}
	}()

	// With the first submission held in flight, a second call must fail
	// without reaching the remote service.
	<-client.entered
	_, err = task.Submit(context.Background(), client)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	close(client.release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, "4242", first.id)
	assert.Equal(t, "4242", task.RemoteID())
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.submits))

	_, err = task.Submit(context.Background(), client)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.submits))
}

func TestSubmitRequiresRequest(t *testing.T) {
	task, err := New("t", []string{"a.jpg"}, Options{})
	require.NoError(t, err)
	_, err = task.Submit(context.Background(), &mockClient{submitID: "1"})
	assert.ErrorIs(t, err, ErrNoRequest)
}

func TestSubmitErrorLeavesTaskUnsubmitted(t *testing.T) {
	client := &mockClient{
		submitErr: &detapi.SubmissionError{Kind: detapi.SubmissionRejected, Message: "bad request"},
	}
	task, err := New("t", []string{"a.jpg"}, Options{})
	require.NoError(t, err)
	require.NoError(t, task.PublishInputList(context.Background(), blob.NewMemoryStore(), "t.json"))
	_, err = task.BuildRequest("caller@org", nil, "", "")
	require.NoError(t, err)

	_, err = task.Submit(context.Background(), client)
	var subErr *detapi.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.False(t, task.Submitted())

	// A failed submission may be retried.
	client.submitErr = nil
	client.submitID = "42"
	_, err = task.Submit(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "42", task.RemoteID())
}

func TestPoll(t *testing.T) {
	task, err := New("t", []string{"a.jpg"}, Options{})
	require.NoError(t, err)

	t.Run("before submission", func(t *testing.T) {
		_, err := task.Poll(context.Background(), &mockClient{})
		assert.ErrorIs(t, err, ErrNotSubmitted)
	})

	require.NoError(t, task.PublishInputList(context.Background(), blob.NewMemoryStore(), "t.json"))
	_, err = task.BuildRequest("caller@org", nil, "", "")
	require.NoError(t, err)
	client := &mockClient{submitID: "7"}
	_, err = task.Submit(context.Background(), client)
	require.NoError(t, err)

	t.Run("refreshes last status", func(t *testing.T) {
		client.status = &detapi.Status{TaskID: "7", State: detapi.StateRunning}
		status, err := task.Poll(context.Background(), client)
		require.NoError(t, err)
		assert.Equal(t, detapi.StateRunning, status.State)
		assert.False(t, task.Terminal())

		client.status = &detapi.Status{TaskID: "7", State: detapi.StateCompleted}
		_, err = task.Poll(context.Background(), client)
		require.NoError(t, err)
		assert.True(t, task.Completed())
		assert.True(t, task.Terminal())
	})

	t.Run("transport error keeps previous status", func(t *testing.T) {
		client.statusErr = &detapi.TransportError{Op: "status", Err: errors.New("timeout")}
		_, err := task.Poll(context.Background(), client)
		assert.Error(t, err)
		assert.True(t, task.Completed(), "a failed poll must not corrupt task state")
	})

	t.Run("input set untouched by polling", func(t *testing.T) {
		assert.Equal(t, []string{"a.jpg"}, task.Items())
	})
}
