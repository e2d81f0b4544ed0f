package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhook_Send(t *testing.T) {
	var got map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)

	if err := wh.Send(context.Background(), "✅ Опубликовано"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got["content"] != "✅ Опубликовано" {
		t.Errorf("content = %q, want message", got["content"])
	}
}

func TestWebhook_SendBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)

	if err := wh.Send(context.Background(), "msg"); err == nil {
		t.Error("Send() on 403 should fail")
	}
}
