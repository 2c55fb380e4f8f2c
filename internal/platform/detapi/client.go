package detapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Endpoint paths under the service base URL.
const (
	submitPath = "/request_detections"
	statusPath = "/task"
)

// Client is the submission and status surface the task layer consumes.
type Client interface {
	// Submit posts the request and returns the assigned remote task ID.
	Submit(ctx context.Context, req *SubmitRequest) (string, error)

	// TaskStatus fetches the current status of a submitted task.
	TaskStatus(ctx context.Context, taskID string) (*Status, error)
}

// HTTPClient talks to the detection service over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a client for the service rooted at baseURL.
// A nil httpClient gets a 60-second-timeout default.
func NewHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Submit posts req to the submission endpoint. A reachable service that
// answers with an error payload, or without a request_id, yields a
// *SubmissionError; everything below that is a *TransportError.
func (c *HTTPClient) Submit(ctx context.Context, req *SubmitRequest) (string, error) {
	url := c.baseURL + submitPath

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode submission request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Op: "submit", URL: url, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(httpReq, "submit")
	if err != nil {
		return "", err
	}

	var resp struct {
		RequestID string `json:"request_id"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &DecodeError{Op: "submit", Err: err}
	}
	if resp.Error != "" {
		return "", &SubmissionError{Kind: SubmissionRejected, Message: resp.Error}
	}
	if resp.RequestID == "" {
		return "", &SubmissionError{
			Kind:    SubmissionMalformedResponse,
			Message: truncateForLog(respBody),
		}
	}

	c.logger.Info("task submitted",
		"request_name", req.RequestName,
		"remote_id", resp.RequestID)
	return resp.RequestID, nil
}

// TaskStatus fetches and parses the status of taskID.
func (c *HTTPClient) TaskStatus(ctx context.Context, taskID string) (*Status, error) {
	url := c.baseURL + statusPath + "/" + taskID

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Op: "status", URL: url, Err: err}
	}

	respBody, err := c.do(httpReq, "status")
	if err != nil {
		return nil, err
	}

	status, err := ParseStatus(respBody)
	if err != nil {
		return nil, err
	}
	if status.TaskID == "" {
		status.TaskID = taskID
	}
	return status, nil
}

func (c *HTTPClient) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Op:  op,
			URL: req.URL.String(),
			Err: fmt.Errorf("unexpected HTTP status %d: %s", resp.StatusCode, truncateForLog(body)),
		}
	}
	return body, nil
}

func truncateForLog(body []byte) string {
	const limit = 256
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
