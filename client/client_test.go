package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHello(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/hello" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"greeting": "hello " + r.URL.Query().Get("text")})
	}))
	defer ts.Close()

	c := New(ts.URL)
	greeting, err := c.Hello(context.Background(), "world")
	if err != nil {
		t.Fatalf("Hello failed: %v", err)
	}
	if greeting != "hello world" {
		t.Errorf("Expected 'hello world', got %q", greeting)
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"code": "INTERNAL_ERROR", "message": "boom"},
			})
			return
		}
		json.NewEncoder(w).Encode([]Session{})
	}))
	defer ts.Close()

	c := New(ts.URL)
	if _, err := c.ListSessions(context.Background()); err != nil {
		t.Fatalf("Expected retries to succeed, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected 3 attempts (2 failures + success), got %d", n)
	}
}

func TestGet_RetriesAreBounded(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "INTERNAL_ERROR", "message": "boom"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.ListSessions(context.Background())
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", n)
	}
}

func TestGet_DomainErrorsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "NOT_FOUND", "message": "Chat session not found"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.ListSessions(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %q", apiErr.Code)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected a single attempt for a 4xx, got %d", n)
	}
}

func TestMutations_NeverRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "INTERNAL_ERROR", "message": "boom"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	if _, err := c.CreateSession(context.Background(), "t"); err == nil {
		t.Fatal("Expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected a single attempt for a mutation, got %d", n)
	}
}

func TestAuthorizationHeaderSent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected 'Bearer tok', got %q", got)
		}
		json.NewEncoder(w).Encode([]Session{})
	}))
	defer ts.Close()

	c := New(ts.URL)
	c.SetToken("tok")
	if _, err := c.ListSessions(context.Background()); err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
}
