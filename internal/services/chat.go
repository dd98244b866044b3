package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"careerguide-backend/internal/models"
)

type sessionRepository interface {
	Create(ctx context.Context, s *models.ChatSession) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error)
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.ChatSession, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID) error
}

type messageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error)
}

// Completer produces an assistant reply for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ChatService struct {
	sessionRepo sessionRepository
	messageRepo messageRepository
	completer   Completer
	redis       *redis.Client
}

func NewChatService(sessionRepo sessionRepository, messageRepo messageRepository, completer Completer, redisClient *redis.Client) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		completer:   completer,
		redis:       redisClient,
	}
}

func (s *ChatService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error) {
	sessions, err := s.sessionRepo.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("Error listing sessions for user %s: %v", userID, err)
		return nil, err
	}
	return sessions, nil
}

// GetSession returns the session and its messages in creation order. A
// session owned by another user yields the same NotFoundError as a missing
// one.
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByIDAndUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Chat session not found"}
		}
		log.Printf("Error getting session %s: %v", sessionID, err)
		return nil, err
	}

	messages, err := s.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		log.Printf("Error loading messages for session %s: %v", sessionID, err)
		return nil, err
	}

	return &models.SessionDetail{ChatSession: *session, Messages: messages}, nil
}

func (s *ChatService) CreateSession(ctx context.Context, userID uuid.UUID, title string) (*models.ChatSession, error) {
	if strings.TrimSpace(title) == "" {
		title = models.DefaultSessionTitle
	}

	session := &models.ChatSession{
		UserID: userID,
		Title:  title,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		log.Printf("Error creating session for user %s: %v", userID, err)
		return nil, err
	}

	s.publish(ctx, userID, models.WSMessage{Type: "session_list_changed"})
	return session, nil
}

// DeleteSession is idempotent: deleting a session that is already gone (or
// that the caller does not own) still reports success.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	if err := s.sessionRepo.Delete(ctx, sessionID, userID); err != nil {
		log.Printf("Error deleting session %s: %v", sessionID, err)
		return err
	}

	s.publish(ctx, userID, models.WSMessage{Type: "session_list_changed"})
	return nil
}

// SendMessage records the user turn, asks the completer for a reply, records
// the assistant turn, and refreshes the session's updated_at. If the
// completer fails after the user message was stored, the user message stays:
// the exchange is deliberately not wrapped in a transaction, so a connection
// is never held across the remote call.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID uuid.UUID, text string) (*models.SendMessageResponse, error) {
	userMessage := &models.Message{
		SessionID: sessionID,
		Content:   text,
		Role:      models.RoleUser,
	}
	if err := s.messageRepo.Create(ctx, userMessage); err != nil {
		log.Printf("Error storing user message for session %s: %v", sessionID, err)
		return nil, err
	}

	reply, err := s.completer.Complete(ctx, text)
	if err != nil {
		log.Printf("AI completion error for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("failed to generate AI response: %w", err)
	}

	aiMessage := &models.Message{
		SessionID: sessionID,
		Content:   reply, // may be empty when the model returned nothing
		Role:      models.RoleAssistant,
	}
	if err := s.messageRepo.Create(ctx, aiMessage); err != nil {
		log.Printf("Error storing assistant message for session %s: %v", sessionID, err)
		return nil, err
	}

	if err := s.sessionRepo.Touch(ctx, sessionID); err != nil {
		log.Printf("Error touching session %s: %v", sessionID, err)
		return nil, err
	}

	s.publish(ctx, userID, models.WSMessage{
		Type:    "session_updated",
		Payload: models.SessionEvent{SessionID: sessionID},
	})

	return &models.SendMessageResponse{
		UserMessage: userMessage,
		AIMessage:   aiMessage,
	}, nil
}

// publish nudges any connected clients for this user via redis pub/sub.
// Failures are logged and dropped; the mutation already succeeded.
func (s *ChatService) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	if s.redis == nil {
		return
	}
	data, _ := json.Marshal(msg)
	if err := s.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data)).Err(); err != nil {
		log.Printf("Error publishing update for user %s: %v", userID, err)
	}
}
