package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newCacheServer serves a minimal fake backend and counts hits per endpoint.
func newCacheServer(t *testing.T) (*httptest.Server, *int32, *int32) {
	t.Helper()
	var listCalls, detailCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat/sessions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/chat/sessions/")
		switch {
		case r.Method == http.MethodGet && rest == "":
			atomic.AddInt32(&listCalls, 1)
			json.NewEncoder(w).Encode([]Session{{ID: uuid.New(), Title: "New Chat"}})
		case r.Method == http.MethodPost && rest == "":
			json.NewEncoder(w).Encode(Session{ID: uuid.New(), Title: "created"})
		case r.Method == http.MethodDelete:
			json.NewEncoder(w).Encode(map[string]bool{"success": true})
		case r.Method == http.MethodPost && strings.HasSuffix(rest, "/messages"):
			json.NewEncoder(w).Encode(SendMessageResult{
				UserMessage: Message{Role: "user"},
				AIMessage:   Message{Role: "assistant", Content: "reply"},
			})
		case r.Method == http.MethodGet:
			atomic.AddInt32(&detailCalls, 1)
			id, _ := uuid.Parse(rest)
			json.NewEncoder(w).Encode(SessionDetail{Session: Session{ID: id, Title: "detail"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &listCalls, &detailCalls
}

func TestSessions_CachedUntilInvalidated(t *testing.T) {
	ts, listCalls, _ := newCacheServer(t)
	sc := NewSessionCache(New(ts.URL))

	for i := 0; i < 3; i++ {
		if _, err := sc.Sessions(context.Background()); err != nil {
			t.Fatalf("Sessions failed: %v", err)
		}
	}
	if n := atomic.LoadInt32(listCalls); n != 1 {
		t.Errorf("Expected 1 list fetch for repeated reads, got %d", n)
	}

	// Creating a session invalidates the list.
	if _, err := sc.CreateSession(context.Background(), "x"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := sc.Sessions(context.Background()); err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if n := atomic.LoadInt32(listCalls); n != 2 {
		t.Errorf("Expected a refetch after create, got %d fetches", n)
	}

	// Deleting does too.
	if _, err := sc.DeleteSession(context.Background(), uuid.New()); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := sc.Sessions(context.Background()); err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if n := atomic.LoadInt32(listCalls); n != 3 {
		t.Errorf("Expected a refetch after delete, got %d fetches", n)
	}
}

func TestSessionDetail_InvalidatedBySend(t *testing.T) {
	ts, _, detailCalls := newCacheServer(t)
	sc := NewSessionCache(New(ts.URL))
	sessionID := uuid.New()
	otherID := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := sc.Session(context.Background(), sessionID); err != nil {
			t.Fatalf("Session failed: %v", err)
		}
	}
	if _, err := sc.Session(context.Background(), otherID); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if n := atomic.LoadInt32(detailCalls); n != 2 {
		t.Errorf("Expected 2 detail fetches (one per session), got %d", n)
	}

	// Sending invalidates only the affected session.
	if _, err := sc.SendMessage(context.Background(), sessionID, "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if _, err := sc.Session(context.Background(), sessionID); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if _, err := sc.Session(context.Background(), otherID); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if n := atomic.LoadInt32(detailCalls); n != 3 {
		t.Errorf("Expected only the sent-to session to refetch, got %d fetches", n)
	}
}

func TestPending_TrueWhileSendInFlight(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(SendMessageResult{})
	}))
	t.Cleanup(ts.Close)

	sc := NewSessionCache(New(ts.URL))
	if sc.Pending() {
		t.Fatal("Pending should start false")
	}

	done := make(chan struct{})
	go func() {
		sc.SendMessage(context.Background(), uuid.New(), "hi")
		close(done)
	}()

	// Wait for the flag to flip on.
	deadline := time.After(2 * time.Second)
	for !sc.Pending() {
		select {
		case <-deadline:
			t.Fatal("Pending never became true")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(release)
	<-done
	if sc.Pending() {
		t.Error("Pending should be false after the send resolves")
	}
}

func TestDraft_ClearedOnSendEvenOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "INTERNAL_ERROR", "message": "boom"},
		})
	}))
	t.Cleanup(ts.Close)

	sc := NewSessionCache(New(ts.URL))
	sc.SetDraft("What jobs fit a biology degree?")

	_, err := sc.SendMessage(context.Background(), uuid.New(), "")
	if err == nil {
		t.Fatal("Expected send to fail")
	}
	// The draft is cleared when the send is issued and is not restored.
	if got := sc.Draft(); got != "" {
		t.Errorf("Expected draft cleared after failed send, got %q", got)
	}
	if sc.Pending() {
		t.Error("Pending should be false after a failed send")
	}
}

func TestDraft_UsedWhenTextOmitted(t *testing.T) {
	var sent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		sent = req.Message
		json.NewEncoder(w).Encode(SendMessageResult{})
	}))
	t.Cleanup(ts.Close)

	sc := NewSessionCache(New(ts.URL))
	sc.SetDraft("drafted question")

	if _, err := sc.SendMessage(context.Background(), uuid.New(), ""); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if sent != "drafted question" {
		t.Errorf("Expected the draft to be sent, got %q", sent)
	}
}
