// Package session implements the local-only sign-in that gates the analysis page.
// Any non-empty input is accepted; nothing is checked against a backend.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cropcare/internal/model"
)

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Message returns the banner text for a form error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Please fill in all fields"
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	case err != nil:
		return "Something went wrong, please try again"
	default:
		return ""
	}
}

type LoginInput struct {
	Email    string
	Password string
}

type SignupInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Current is the signed-in browser as seen by handlers.
type Current struct {
	ID   string
	User *model.User
}

type Service struct {
	store  Store
	tokens *Tokens
	cost   int
	now    func() time.Time
}

func NewService(store Store, tokens *Tokens) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// Login always succeeds for non-empty email and password.
func (s *Service) Login(ctx context.Context, input LoginInput) (string, *model.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return "", nil, ErrMissingFields
	}
	return s.start(ctx, &model.User{Email: email}, input.Password)
}

// Signup always succeeds for complete input with matching passwords.
func (s *Service) Signup(ctx context.Context, input SignupInput) (string, *model.User, error) {
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if first == "" || last == "" || email == "" || input.Password == "" {
		return "", nil, ErrMissingFields
	}
	if input.Password != input.ConfirmPassword {
		return "", nil, ErrPasswordMismatch
	}
	return s.start(ctx, &model.User{FirstName: first, LastName: last, Email: email}, input.Password)
}

// Resolve maps a cookie token to its session. It returns nil when the browser is signed out.
func (s *Service) Resolve(ctx context.Context, token string) (*Current, error) {
	if token == "" {
		return nil, nil
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil
	}
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &Current{ID: id, User: user}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.store.Clear(ctx, id)
}

func (s *Service) start(ctx context.Context, user *model.User, password string) (string, *model.User, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordKey(password), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password failed: %w", err)
	}
	user.PasswordHash = string(hash)
	user.CreatedAt = s.now()

	id := uuid.NewString()
	if err := s.store.Set(ctx, id, user); err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(id)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// passwordKey fits any password into bcrypt's 72-byte input limit.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
