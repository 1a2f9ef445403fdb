// Package auth handles account registration and session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"StockDesk/internal/model"
	"StockDesk/internal/store"
)

const sessionTTL = 30 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrSessionExpired     = errors.New("auth: session expired")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters with an uppercase letter, a lowercase letter and a digit")
)

// Service implements registration, login and session validation on top of
// the store.
type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: log}
}

// Register creates an account. The password must pass the strength policy
// and the email must be unused.
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("auth: name and email are required")
	}
	if !validPassword(password) {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("email", email))
	return u, nil
}

// Login verifies credentials and opens a 30-day session.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, nil, err
	}
	sess := &model.Session{Token: token, UserID: u.ID, Expires: time.Now().Add(sessionTTL)}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, nil, err
	}
	s.log.Info("user logged in", zap.String("email", email))
	return sess, u, nil
}

// Validate resolves a bearer token to its user. Expired sessions are
// deleted on sight.
func (s *Service) Validate(ctx context.Context, token string) (*model.User, error) {
	sess, err := s.store.SessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if time.Now().After(sess.Expires) {
		_ = s.store.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}
	return s.store.UserByID(ctx, sess.UserID)
}

// Logout deletes the session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// validPassword enforces minimum length plus upper, lower and digit classes.
func validPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
