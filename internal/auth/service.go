// Package auth implements the credential and token gateway: bcrypt password
// verification, JWT issuance and verification. The signing secret is always
// injected; there is no embedded default.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/huddlechat/huddle/internal/models"
	"github.com/huddlechat/huddle/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// usernameRegex: alphanumeric, hyphens, underscores, 1-32 chars.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

// dummyHash is compared against when the email is unknown, so login takes
// the same time whether the email or the password was wrong.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("huddle-timing-pad"), bcrypt.DefaultCost)

// Service is the auth gateway. It owns credential checks and token
// issuance; it is stateless beyond the injected user store.
type Service struct {
	users    store.UserStore
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates an auth service signing tokens with secret.
func NewService(users store.UserStore, secret []byte) *Service {
	return &Service{
		users:    users,
		secret:   secret,
		tokenTTL: TokenTTL,
	}
}

// Register validates and creates a new user, returning the user and a
// freshly issued token. Duplicate email/username surface as
// store.ErrDuplicateEmail / store.ErrDuplicateUsername.
func (s *Service) Register(ctx context.Context, email, username, password string) (*models.User, string, error) {
	if !emailRegex.MatchString(email) || len(email) > 254 {
		return nil, "", fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if !usernameRegex.MatchString(username) {
		return nil, "", fmt.Errorf("%w: username must be 1-32 characters, alphanumeric with hyphens and underscores only", ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.CreateUser(ctx, email, username, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Authenticate checks email and password, never revealing which of the two
// was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// Burn a hash comparison anyway to keep response time flat.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// IssueToken signs a token binding the user's id, username and email.
func (s *Service) IssueToken(user *models.User) (string, error) {
	return GenerateToken(user.ID.String(), user.Username, user.Email, s.secret, s.tokenTTL)
}

// VerifyToken validates a token and returns the identity it binds.
func (s *Service) VerifyToken(token string) (*Claims, error) {
	return ParseToken(token, s.secret)
}
