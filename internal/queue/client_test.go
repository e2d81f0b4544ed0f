package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ClaimNext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/waiting/wallgen" {
			t.Errorf("path = %q, want /api/waiting/wallgen", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_id":      "abc123",
			"url":      "https://example.com/src.jpg",
			"priority": 2,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	item, err := client.ClaimNext(context.Background(), "wallgen")
	if err != nil {
		t.Fatalf("ClaimNext() error = %v", err)
	}

	if item.ID != "abc123" {
		t.Errorf("ID = %q, want %q", item.ID, "abc123")
	}
	if item.URL != "https://example.com/src.jpg" {
		t.Errorf("URL = %q, want source url", item.URL)
	}
	if item.Priority != 2 {
		t.Errorf("Priority = %d, want 2", item.Priority)
	}
	if item.Status != StatusClaimed {
		t.Errorf("Status = %q, want %q", item.Status, StatusClaimed)
	}
}

func TestClient_ClaimNextEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, "not found"},
		{"no items body", http.StatusBadRequest, "no items waiting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil)

			_, err := client.ClaimNext(context.Background(), "wallgen")
			if !errors.Is(err, ErrNoWaiting) {
				t.Errorf("ClaimNext() error = %v, want ErrNoWaiting", err)
			}
		})
	}
}

func TestClient_ClaimNextIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_id": "abc123"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	if _, err := client.ClaimNext(context.Background(), "wallgen"); err == nil {
		t.Error("ClaimNext() with incomplete item should fail")
	}
}

func TestClient_Count(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/waiting/count/wallgen" {
			t.Errorf("path = %q, want /api/waiting/count/wallgen", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"count": 3}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	n, err := client.Count(context.Background(), "wallgen")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestClient_Complete(t *testing.T) {
	var got CompleteRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q, want PATCH", r.Method)
		}
		if r.URL.Path != "/api/waiting/abc123" {
			t.Errorf("path = %q, want /api/waiting/abc123", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	err := client.Complete(context.Background(), "abc123", CompleteRequest{
		ItemID:  "789",
		ItemURL: "http://catalog.local/item/789",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if got.ItemID != "789" {
		t.Errorf("ItemID = %q, want %q", got.ItemID, "789")
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q (default)", got.Status, StatusCompleted)
	}
}

func TestClient_Add(t *testing.T) {
	var got AddRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/api/waiting" {
			t.Errorf("path = %q, want /api/waiting", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	err := client.Add(context.Background(), AddRequest{
		URL:    "https://example.com/new.jpg",
		Assign: "wallgen",
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if got.URL != "https://example.com/new.jpg" {
		t.Errorf("URL = %q, want source url", got.URL)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %q, want %q (default)", got.Status, StatusPending)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	_, err := client.Count(context.Background(), "wallgen")
	if err == nil {
		t.Fatal("Count() on 500 should fail")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
}
