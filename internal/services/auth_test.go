package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"careerguide-backend/internal/middleware"
	"careerguide-backend/internal/models"
)

type fakeUserRepo struct {
	users map[string]*models.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.Username] = &stored
	return nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	stored := *u
	return &stored, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			stored := *u
			return &stored, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newTestAuthService() (*AuthService, *fakeUserRepo) {
	repo := &fakeUserRepo{users: make(map[string]*models.User)}
	return NewAuthService(repo, nil, middleware.NewJWTAuth("test-secret")), repo
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService()

	tests := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{"short username", "ab", "password123", "username"},
		{"short password", "alice", "short", "password"},
		{"username with spaces", "a b c d", "password123", "username"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), models.RegisterRequest{
				Username: tc.username,
				Password: tc.password,
			})

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if _, ok := vErr.Fields[tc.field]; !ok {
				t.Errorf("Expected field error for %q, got %v", tc.field, vErr.Fields)
			}
		})
	}
}

func TestRegister_HashesPassword(t *testing.T) {
	svc, repo := newTestAuthService()

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "alice",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	stored := repo.users["alice"]
	if stored == nil {
		t.Fatal("User was not stored")
	}
	if stored.PasswordHash == "password123" {
		t.Error("Password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")); err != nil {
		t.Errorf("Stored hash does not match password: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("Expected a user ID to be assigned")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService()

	if _, err := svc.Register(context.Background(), models.RegisterRequest{Username: "alice", Password: "password123"}); err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "alice", Password: "password456"})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
}

func TestLogin_WrongCredentialsIndistinguishable(t *testing.T) {
	svc, _ := newTestAuthService()

	if _, err := svc.Register(context.Background(), models.RegisterRequest{Username: "alice", Password: "password123"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "password123"},
		{"wrong password", "alice", "wrong-password"},
	}

	var messages []string
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), models.LoginRequest{
				Username: tc.username,
				Password: tc.password,
			})
			var uErr *UnauthorizedError
			if !errors.As(err, &uErr) {
				t.Fatalf("Expected UnauthorizedError, got %v", err)
			}
			messages = append(messages, uErr.Message)
		})
	}

	if len(messages) == 2 && messages[0] != messages[1] {
		t.Errorf("Unknown-user and wrong-password errors should read the same: %q vs %q", messages[0], messages[1])
	}
}
