package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockDesk/internal/model"
	"StockDesk/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "auth.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, zap.NewNop()), st
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "An", "An@Example.com", "Str0ngPass")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "an@example.com", u.Email) // normalized
	assert.NotEqual(t, "Str0ngPass", u.PasswordHash)

	_, err = svc.Register(ctx, "An Again", "an@example.com", "Str0ngPass")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_PasswordPolicy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Str0ngPass", true},
		{"too short", "Ab1", false},
		{"no uppercase", "weakpass1", false},
		{"no lowercase", "WEAKPASS1", false},
		{"no digit", "WeakPassword", false},
		{"exactly eight", "Abcdef12", true},
	}
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			email := "user" + string(rune('a'+i)) + "@example.com"
			_, err := svc.Register(ctx, "U", email, tc.password)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}

func TestLoginAndValidate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "An", "an@example.com", "Str0ngPass")
	require.NoError(t, err)

	sess, got, err := svc.Login(ctx, "an@example.com", "Str0ngPass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(sessionTTL), sess.Expires, time.Minute)

	valid, err := svc.Validate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, valid.ID)
}

func TestLogin_WrongCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "An", "an@example.com", "Str0ngPass")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "an@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "Str0ngPass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidate_ExpiredSession(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "An", "an@example.com", "Str0ngPass")
	require.NoError(t, err)

	expired := &model.Session{Token: "expired-token", UserID: u.ID, Expires: time.Now().Add(-time.Hour)}
	require.NoError(t, st.CreateSession(ctx, expired))

	_, err = svc.Validate(ctx, "expired-token")
	assert.ErrorIs(t, err, ErrSessionExpired)

	// expired session is removed, a retry sees it as unknown
	_, err = svc.Validate(ctx, "expired-token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "An", "an@example.com", "Str0ngPass")
	require.NoError(t, err)
	sess, _, err := svc.Login(ctx, "an@example.com", "Str0ngPass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Validate(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.NoError(t, svc.Logout(ctx, "unknown-token"))
}
