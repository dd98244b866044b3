package client

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionCache caches the session list and per-session detail the way the
// web UI does: a read serves from cache until a mutation invalidates it.
// Creating or deleting a session drops the list; sending a message drops
// that session's detail. It also tracks the send-in-flight flag that drives
// the typing indicator, and the draft text being composed.
type SessionCache struct {
	api *Client

	mu       sync.Mutex
	sessions []Session
	hasList  bool
	details  map[uuid.UUID]*SessionDetail
	pending  bool
	draft    string
}

func NewSessionCache(api *Client) *SessionCache {
	return &SessionCache{
		api:     api,
		details: make(map[uuid.UUID]*SessionDetail),
	}
}

// Sessions returns the cached list, fetching it when stale.
func (sc *SessionCache) Sessions(ctx context.Context) ([]Session, error) {
	sc.mu.Lock()
	if sc.hasList {
		cached := sc.sessions
		sc.mu.Unlock()
		return cached, nil
	}
	sc.mu.Unlock()

	sessions, err := sc.api.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	sc.sessions = sessions
	sc.hasList = true
	sc.mu.Unlock()
	return sessions, nil
}

// Session returns the cached detail for id, fetching it when stale.
func (sc *SessionCache) Session(ctx context.Context, id uuid.UUID) (*SessionDetail, error) {
	sc.mu.Lock()
	if detail, ok := sc.details[id]; ok {
		sc.mu.Unlock()
		return detail, nil
	}
	sc.mu.Unlock()

	detail, err := sc.api.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	sc.details[id] = detail
	sc.mu.Unlock()
	return detail, nil
}

// CreateSession creates a session and invalidates the list cache.
func (sc *SessionCache) CreateSession(ctx context.Context, title string) (*Session, error) {
	session, err := sc.api.CreateSession(ctx, title)
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	sc.hasList = false
	sc.mu.Unlock()
	return session, nil
}

// DeleteSession deletes a session and invalidates both the list cache and
// the session's detail cache.
func (sc *SessionCache) DeleteSession(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := sc.api.DeleteSession(ctx, id)
	if err != nil {
		return false, err
	}

	sc.mu.Lock()
	sc.hasList = false
	delete(sc.details, id)
	sc.mu.Unlock()
	return ok, nil
}

// SendMessage sends the current draft (or text, when the draft is empty) and
// invalidates the session's detail cache on success. The draft is cleared as
// soon as the send is issued and is not restored on failure, matching the
// web UI. Pending reports true for the whole round trip.
func (sc *SessionCache) SendMessage(ctx context.Context, sessionID uuid.UUID, text string) (*SendMessageResult, error) {
	sc.mu.Lock()
	if text == "" {
		text = sc.draft
	}
	sc.draft = ""
	sc.pending = true
	sc.mu.Unlock()

	result, err := sc.api.SendMessage(ctx, sessionID, text)

	sc.mu.Lock()
	sc.pending = false
	if err == nil {
		delete(sc.details, sessionID)
	}
	sc.mu.Unlock()

	return result, err
}

// Pending reports whether a send is in flight (the typing indicator state).
func (sc *SessionCache) Pending() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.pending
}

// Draft returns the text currently being composed.
func (sc *SessionCache) Draft() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.draft
}

func (sc *SessionCache) SetDraft(text string) {
	sc.mu.Lock()
	sc.draft = text
	sc.mu.Unlock()
}

// Invalidate drops every cached view; used when an external signal (e.g. a
// websocket session_updated event) says the server state moved.
func (sc *SessionCache) Invalidate() {
	sc.mu.Lock()
	sc.hasList = false
	sc.details = make(map[uuid.UUID]*SessionDetail)
	sc.mu.Unlock()
}
