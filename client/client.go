// Package client is a small Go SDK for the chatrelay HTTP surface, meant for
// integrations that enqueue messages and react to reachability signals.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chatrelay/internal/model"
)

type RelayClient struct {
	addr       string
	apiKey     string
	httpClient *http.Client
}

func NewRelayClient(addr, apiKey string) *RelayClient {
	return &RelayClient{
		addr:       addr,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type Enqueued struct {
	JobID  int64           `json:"job_id"`
	Status model.JobStatus `json:"status"`
}

type Drained struct {
	Moved int `json:"moved"`
}

type QueueStats struct {
	Queue  string            `json:"queue"`
	Counts model.QueueCounts `json:"counts"`
	Total  int64             `json:"total"`
}

// SendText enqueues a text message. maxAttempts 0 takes the server default.
func (c *RelayClient) SendText(ctx context.Context, to, text string, maxAttempts int) (*Enqueued, error) {
	body := map[string]any{"to": to, "text": text}
	if maxAttempts > 0 {
		body["max_attempts"] = maxAttempts
	}
	var out Enqueued
	if err := c.post(ctx, "/v1/messages/text", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMedia enqueues a media message by content reference.
func (c *RelayClient) SendMedia(ctx context.Context, to, mediaURL string, maxAttempts int) (*Enqueued, error) {
	body := map[string]any{"to": to, "media_url": mediaURL}
	if maxAttempts > 0 {
		body["max_attempts"] = maxAttempts
	}
	var out Enqueued
	if err := c.post(ctx, "/v1/messages/media", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DrainPending signals that a recipient became reachable and moves its
// deferred messages onto the queue.
func (c *RelayClient) DrainPending(ctx context.Context, recipient string) (*Drained, error) {
	path := "/v1/pending/" + url.PathEscape(recipient) + "/drain"
	var out Drained
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RelayClient) Stats(ctx context.Context) (*QueueStats, error) {
	var out QueueStats
	if err := c.get(ctx, "/v1/queue/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RelayClient) PendingSummary(ctx context.Context) (*model.PendingSummary, error) {
	var out model.PendingSummary
	if err := c.get(ctx, "/v1/pending/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RelayClient) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *RelayClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RelayClient) do(req *http.Request, out any) error {
	req.Header.Set("X-Relay-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("chatrelay: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("chatrelay: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
