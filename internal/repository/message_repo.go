package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"careerguide-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()

	query := `
		INSERT INTO messages (id, session_id, content, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query, m.ID, m.SessionID, m.Content, m.Role).Scan(
		&m.CreatedAt,
	)
}

func (r *MessageRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error) {
	query := `SELECT id, session_id, content, role, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Content, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
