package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatrelay/internal/model"
)

func TestHTTPAdapter_SendText_OK(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "secret", nil)
	if err := a.SendText(context.Background(), "inst-1", "+51999123456", "hola"); err != nil {
		t.Fatalf("SendText returned error: %v", err)
	}

	if gotPath != "/instances/inst-1/messages/text" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody.To != "+51999123456" || gotBody.Text != "hola" {
		t.Errorf("unexpected body %+v", gotBody)
	}
}

func TestHTTPAdapter_PolicyGateMapsToRecipientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(sendError{Code: "contact_inactive", Error: "contact has not initiated"})
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "", nil)
	err := a.SendMedia(context.Background(), "inst-1", "+51999123456", "https://cdn/img.png")
	if !errors.Is(err, ErrRecipientUnavailable) {
		t.Fatalf("expected ErrRecipientUnavailable, got %v", err)
	}
	if reason := DeferralReason(err); reason != model.ReasonContactInactive {
		t.Errorf("expected contact_inactive reason, got %s", reason)
	}
}

func TestHTTPAdapter_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(sendError{Error: "session restarting"})
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "", nil)
	err := a.SendText(context.Background(), "inst-1", "+51999123456", "hola")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRecipientUnavailable) {
		t.Fatal("transient transport failure must not map to the deferral path")
	}
}

func TestDeferralReason_FallsBackToUnknown(t *testing.T) {
	if got := DeferralReason(errors.New("boom")); got != model.ReasonUnknown {
		t.Errorf("expected unknown, got %s", got)
	}
	if got := DeferralReason(&RecipientUnavailableError{}); got != model.ReasonUnknown {
		t.Errorf("expected unknown for empty reason, got %s", got)
	}
}
