package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dot5_panel/internal/shared/logger"
	"dot5_panel/internal/shared/types"
)

const (
	checkBulkPath = "/api/check-bulk"
	exportCSVPath = "/api/export-csv"

	maxResponseBytes = 32 << 20
)

var (
	// ErrUnexpectedStatus is returned when the engine answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("engine returned unexpected status")
	// ErrResponseTooLarge is returned instead of a truncated body.
	ErrResponseTooLarge = errors.New("engine response exceeds size limit")
)

// Client 是远端检测引擎的 HTTP 客户端。不做重试。
type Client struct {
	baseURL  string
	client   *http.Client
	maxBytes int64
}

// NewClient creates a client for the engine at baseURL. A zero timeout
// leaves cancellation entirely to the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		maxBytes: maxResponseBytes,
	}
}

// BaseURL returns the engine base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckBulk submits one batch and returns the engine's verdicts in response order.
func (c *Client) CheckBulk(ctx context.Context, req types.CheckRequest) ([]types.ResultRecord, error) {
	l := logger.WithComponent("Engine")
	if req.TryPorts == nil {
		req.TryPorts = []int{}
	}

	start := time.Now()
	body, err := c.post(ctx, checkBulkPath, req)
	if err != nil {
		return nil, err
	}

	records, err := decodeResults(body)
	if err != nil {
		return nil, err
	}
	l.Debug().
		Int("candidates", len(req.IPs)).
		Int("results", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("check-bulk finished.")
	return records, nil
}

// ExportCSV submits the result set and returns the engine's CSV document as opaque text.
func (c *Client) ExportCSV(ctx context.Context, results []types.ResultRecord) (string, error) {
	if results == nil {
		results = []types.ResultRecord{}
	}
	body, err := c.post(ctx, exportCSVPath, types.ExportRequest{Results: results})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w (%d) from %s", ErrUnexpectedStatus, resp.StatusCode, path)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %s over %d bytes", ErrResponseTooLarge, path, c.maxBytes)
	}
	return body, nil
}
