// Package client is a small Go client for the CareerGuide backend API. It
// mirrors the remote surface one call per method and layers a SessionCache on
// top for UIs that want list/detail caching with mutation-driven
// invalidation.
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

	"github.com/google/uuid"
)

const (
	// Read calls are retried a bounded number of times; mutations never are.
	readRetries    = 2
	readRetryDelay = 500 * time.Millisecond
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs the access token used for authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

// APIError is the decoded server error envelope.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
	Status    int               `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionDetail struct {
	Session
	Messages []Message `json:"messages"`
}

type SendMessageResult struct {
	UserMessage Message `json:"user_message"`
	AIMessage   Message `json:"ai_message"`
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (c *Client) Hello(ctx context.Context, text string) (string, error) {
	var resp struct {
		Greeting string `json:"greeting"`
	}
	path := "/api/v1/hello?text=" + url.QueryEscape(text)
	if err := c.get(ctx, path, &resp); err != nil {
		return "", err
	}
	return resp.Greeting, nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (*Tokens, error) {
	body := map[string]string{"username": username, "password": password}
	tokens := &Tokens{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, tokens); err != nil {
		return nil, err
	}
	c.token = tokens.AccessToken
	return tokens, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.get(ctx, "/api/v1/chat/sessions/", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*SessionDetail, error) {
	detail := &SessionDetail{}
	if err := c.get(ctx, "/api/v1/chat/sessions/"+id.String(), detail); err != nil {
		return nil, err
	}
	return detail, nil
}

func (c *Client) CreateSession(ctx context.Context, title string) (*Session, error) {
	session := &Session{}
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/sessions/", body, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (c *Client) DeleteSession(ctx context.Context, id uuid.UUID) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v1/chat/sessions/"+id.String(), nil, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (c *Client) SendMessage(ctx context.Context, sessionID uuid.UUID, message string) (*SendMessageResult, error) {
	result := &SendMessageResult{}
	body := map[string]string{"message": message}
	path := "/api/v1/chat/sessions/" + sessionID.String() + "/messages"
	if err := c.do(ctx, http.MethodPost, path, body, result); err != nil {
		return nil, err
	}
	return result, nil
}

// get performs a read with the bounded retry policy. Only transport errors
// and 5xx responses are retried; a well-formed API error is final.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= readRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(readRetryDelay):
			}
		}

		lastErr = c.do(ctx, http.MethodGet, path, nil, out)
		if lastErr == nil {
			return nil
		}
		if apiErr, ok := lastErr.(*APIError); ok && apiErr.Status < 500 {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
			return &APIError{Code: "UNKNOWN", Message: resp.Status, Status: resp.StatusCode}
		}
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
