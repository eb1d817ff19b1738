package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatrelay/internal/model"
)

// HTTPAdapter drives a transport sidecar over its REST surface. Connectivity
// comes from the shared StateRegistry rather than the sidecar, so a dead
// sidecar reads as disconnected instead of erroring every job.
type HTTPAdapter struct {
	baseURL string
	token   string
	states  *StateRegistry
	client  *http.Client
}

func NewHTTPAdapter(baseURL, token string, states *StateRegistry) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: baseURL,
		token:   token,
		states:  states,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	To       string `json:"to"`
	Text     string `json:"text,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
}

type sendError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (a *HTTPAdapter) SendText(ctx context.Context, instanceID, recipient, text string) error {
	return a.send(ctx, instanceID, sendRequest{To: recipient, Text: text}, "messages/text")
}

func (a *HTTPAdapter) SendMedia(ctx context.Context, instanceID, recipient, mediaURL string) error {
	return a.send(ctx, instanceID, sendRequest{To: recipient, MediaURL: mediaURL}, "messages/media")
}

func (a *HTTPAdapter) ConnectionState(ctx context.Context, instanceID string) (ConnectionState, error) {
	return a.states.Get(ctx, instanceID)
}

func (a *HTTPAdapter) send(ctx context.Context, instanceID string, payload sendRequest, path string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/instances/%s/%s", a.baseURL, instanceID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var se sendError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &se)

	// 422 + a policy code means the recipient is gated, not that the send
	// transiently failed. Everything else retries.
	if resp.StatusCode == http.StatusUnprocessableEntity {
		switch se.Code {
		case "contact_inactive":
			return &RecipientUnavailableError{Reason: model.ReasonContactInactive}
		case "recipient_unavailable":
			return &RecipientUnavailableError{Reason: model.ReasonUnknown}
		}
	}

	if se.Error != "" {
		return fmt.Errorf("transport %s: %s (status %d)", path, se.Error, resp.StatusCode)
	}
	return fmt.Errorf("transport %s: status %d", path, resp.StatusCode)
}
