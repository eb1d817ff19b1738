package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatrelay/internal/model"
)

func TestSendText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages/text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Relay-Key") != "key-1" {
			t.Errorf("missing API key header")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["to"] != "+51999123456" {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(Enqueued{JobID: 42, Status: model.JobPending})
	}))
	defer srv.Close()

	c := NewRelayClient(srv.URL, "key-1")
	res, err := c.SendText(context.Background(), "+51999123456", "hola", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.JobID != 42 || res.Status != model.JobPending {
		t.Errorf("unexpected response %+v", res)
	}
}

func TestDrainPending_EscapesRecipient(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(Drained{Moved: 2})
	}))
	defer srv.Close()

	c := NewRelayClient(srv.URL, "key-1")
	res, err := c.DrainPending(context.Background(), "+51 999 123 456")
	if err != nil {
		t.Fatal(err)
	}
	if res.Moved != 2 {
		t.Errorf("expected 2 moved, got %d", res.Moved)
	}
	if gotPath != "/v1/pending/+51%20999%20123%20456/drain" {
		t.Errorf("unexpected path %q", gotPath)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
	}))
	defer srv.Close()

	c := NewRelayClient(srv.URL, "bad-key")
	if _, err := c.Stats(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
