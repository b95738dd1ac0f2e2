package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
	"kvreplay/pkg/store"
	"kvreplay/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Client is a store.Store that talks to a kvserver over HTTP.
// It never retries: a failed request is returned to the caller as is.
type Client struct {
	baseURL string
	client  *http.Client
}

type response struct {
	Status string     `json:"status"`
	Pairs  []types.KV `json:"pairs"`
	Error  string     `json:"error"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) WriteBatch(ctx context.Context, ops []batch.Operation) error {
	_, err := c.post(ctx, "/api/batch", batch.Batch{Operations: ops})
	return err
}

func (c *Client) ScanByRange(ctx context.Context, r keyrange.Range) ([]types.KV, error) {
	resp, err := c.post(ctx, "/api/scan", r)
	if err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

func (c *Client) Reset(ctx context.Context) error {
	_, err := c.post(ctx, "/api/reset", struct{}{})
	return err
}

// Health returns nil when the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health: %w", store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status=%d", store.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (response, error) {
	var out response

	payload, err := json.Marshal(body)
	if err != nil {
		return out, fmt.Errorf("encode %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: POST %s: %w", store.ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("%w: read %s body: %w", store.ErrRequest, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("%w: POST %s status=%d body=%s", store.ErrRequest, path, resp.StatusCode, string(b))
	}

	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: decode %s: %w body=%s", store.ErrRequest, path, err, string(b))
	}
	return out, nil
}
