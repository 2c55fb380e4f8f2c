package blob

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSASClientUpload(t *testing.T) {
	var gotPath, gotQuery, gotBlobType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBlobType = r.Header.Get("x-ms-blob-type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewSASClient(server.URL+"/container", "sv=write", nil, discardLogger())
	url, err := client.Upload(context.Background(), "api_inputs/survey/task.json", []byte(`["a.jpg"]`))

	require.NoError(t, err)
	assert.Equal(t, "/container/api_inputs/survey/task.json", gotPath)
	assert.Equal(t, "sv=write", gotQuery)
	assert.Equal(t, "BlockBlob", gotBlobType)
	assert.Equal(t, `["a.jpg"]`, string(gotBody))
	assert.Equal(t, server.URL+"/container/api_inputs/survey/task.json?sv=write", url)
}

func TestSASClientUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewSASClient(server.URL, "sv=write", nil, discardLogger())
	_, err := client.Upload(context.Background(), "task.json", []byte("{}"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestSASClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`["a.jpg","b.jpg"]`))
	}))
	defer server.Close()

	client := NewSASClient(server.URL, "sv=write", nil, discardLogger())
	data, err := client.Fetch(context.Background(), server.URL+"/out/images.json?sv=read")

	require.NoError(t, err)
	assert.JSONEq(t, `["a.jpg","b.jpg"]`, string(data))
}

func TestSASClientFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewSASClient(server.URL, "sv=write", nil, discardLogger())
	_, err := client.Fetch(context.Background(), server.URL+"/missing.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	url, err := store.Upload(context.Background(), "inputs/list.json", []byte(`["a.jpg"]`))
	require.NoError(t, err)
	assert.Equal(t, "memory://inputs/list.json", url)

	data, err := store.Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, `["a.jpg"]`, string(data))

	_, err = store.Fetch(context.Background(), "memory://absent.json")
	assert.Error(t, err)
}
