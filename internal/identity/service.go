package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/King47-code/safe-ride-backend/internal/auth"
	"github.com/King47-code/safe-ride-backend/internal/models"
)

// Service owns user registration and login. The ride engine never touches
// credentials; it only consumes the verified identity carried in the token.
type Service struct {
	DB   *sql.DB
	Gate *auth.Gate
}

type Registration struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"fullName"`
	Role     models.Role `json:"role"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what both register and login hand back: a signed bearer token
// plus the public view of the user.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates a user and signs them in. A duplicate email surfaces as
// models.ErrConflict via the unique index, not a lookup-then-insert race.
func (s *Service) Register(ctx context.Context, reg Registration) (Session, error) {
	email := normalizeEmail(reg.Email)
	if email == "" || reg.Password == "" {
		return Session{}, fmt.Errorf("%w: email and password required", models.ErrInvalidInput)
	}
	if len(reg.Password) < 8 {
		return Session{}, fmt.Errorf("%w: password must be at least 8 characters", models.ErrInvalidInput)
	}
	if !models.ValidRole(reg.Role) {
		return Session{}, fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, reg.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    email,
		FullName: strings.TrimSpace(reg.FullName),
		Role:     reg.Role,
		Created:  time.Now().UTC(),
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, string(hash), user.FullName, string(user.Role), user.Created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return Session{}, fmt.Errorf("%w: email already registered", models.ErrConflict)
		}
		return Session{}, fmt.Errorf("%w: insert user: %v", models.ErrStorageFailure, err)
	}

	return s.startSession(user)
}

// Login verifies credentials and issues a fresh token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds Credentials) (Session, error) {
	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return Session{}, fmt.Errorf("%w: email and password required", models.ErrInvalidInput)
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, full_name, role, created_at
		FROM users WHERE email = $1`, email)

	var (
		user models.User
		hash string
		role string
	)
	if err := row.Scan(&user.ID, &user.Email, &hash, &user.FullName, &role, &user.Created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
		}
		return Session{}, fmt.Errorf("%w: lookup user: %v", models.ErrStorageFailure, err)
	}
	user.Role = models.Role(role)

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)); err != nil {
		return Session{}, fmt.Errorf("%w: invalid credentials", models.ErrUnauthorized)
	}

	return s.startSession(user)
}

func (s *Service) startSession(user models.User) (Session, error) {
	token, err := s.Gate.Sign(user.ID, user.Role)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
