package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"careerguide-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.ChatSession) error {
	s.ID = uuid.New()

	query := `
		INSERT INTO chat_sessions (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.Title).Scan(
		&s.CreatedAt, &s.UpdatedAt,
	)
}

func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.ChatSession, error) {
	query := `SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*models.ChatSession{}
	for rows.Next() {
		s := &models.ChatSession{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetByIDAndUser looks a session up by id and owner in one predicate, so a
// session owned by someone else is indistinguishable from a missing one.
func (r *SessionRepo) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	query := `SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes the session if the caller owns it. Deleting an absent row is
// not an error; messages go with the session via ON DELETE CASCADE.
func (r *SessionRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2", id, userID)
	return err
}

// Touch refreshes updated_at after a message exchange.
func (r *SessionRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1", id)
	return err
}
