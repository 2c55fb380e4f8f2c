// Package blob is the narrow surface of the object-storage collaborator:
// upload a document to a named location and get back a stable URL, and
// fetch a document by URL. The engine needs nothing else from storage.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Uploader writes a document under a name and returns a URL the remote
// service can read it from.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Fetcher retrieves a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Store combines both directions.
type Store interface {
	Uploader
	Fetcher
}

// SASClient is a Store over a storage container addressed by SAS URLs:
// uploads PUT to <containerURL>/<name>?<writeToken>, fetches GET the URL
// as given (result URLs already embed their own read tokens).
type SASClient struct {
	containerURL string
	writeToken   string
	http         *http.Client
	logger       *slog.Logger
}

// NewSASClient creates a SASClient for the container at containerURL.
// writeToken is a write-enabled SAS token without a leading '?'.
func NewSASClient(containerURL, writeToken string, httpClient *http.Client, logger *slog.Logger) *SASClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &SASClient{
		containerURL: strings.TrimRight(containerURL, "/"),
		writeToken:   strings.TrimPrefix(writeToken, "?"),
		http:         httpClient,
		logger:       logger,
	}
}

// Upload PUTs data as a block blob named name and returns the blob URL
// with the write token appended, which is what the remote service is
// handed to read the list back.
func (c *SASClient) Upload(ctx context.Context, name string, data []byte) (string, error) {
	blobURL := c.containerURL + "/" + strings.TrimPrefix(name, "/")
	putURL := blobURL + "?" + c.writeToken

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request for %s: %w", name, err)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload of %s returned HTTP %d", name, resp.StatusCode)
	}

	c.logger.Debug("uploaded blob", "name", name, "bytes", len(data))
	return putURL, nil
}

// Fetch GETs url and returns the body.
func (c *SASClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %s returned HTTP %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// MemoryStore is an in-process Store for tests and dry runs. Uploads are
// addressable at "memory://<name>".
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Upload stores a copy of data under name.
func (m *MemoryStore) Upload(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
	return "memory://" + name, nil
}

// Fetch returns the content previously uploaded at url.
func (m *MemoryStore) Fetch(_ context.Context, url string) ([]byte, error) {
	name := strings.TrimPrefix(url, "memory://")
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", url)
	}
	return append([]byte(nil), data...), nil
}

// Put seeds the store directly, for tests that only fetch.
func (m *MemoryStore) Put(name string, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
	return "memory://" + name
}
