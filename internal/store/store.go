// Package store persists accounts, sessions, watchlists, notes and chat
// history in SQLite.
package store

import (
	"context"
	"errors"

	"StockDesk/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("store: duplicate")
)

// Store is the persistence interface the rest of the service depends on.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)

	CreateSession(ctx context.Context, s *model.Session) error
	SessionByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error

	AddWatchlistItem(ctx context.Context, item *model.WatchlistItem) error
	RemoveWatchlistItem(ctx context.Context, userID, symbol string) error
	Watchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error)
	AllWatchlistSymbols(ctx context.Context) ([]string, error)

	CreateNote(ctx context.Context, n *model.Note) error
	UpdateNote(ctx context.Context, n *model.Note) error
	DeleteNote(ctx context.Context, userID, noteID string) error
	Notes(ctx context.Context, userID, symbol string) ([]model.Note, error)

	CreateChatSession(ctx context.Context, cs *model.ChatSession) error
	ChatSessionByID(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	ChatSessions(ctx context.Context, userID string) ([]model.ChatSession, error)
	UpdateChatSession(ctx context.Context, cs *model.ChatSession) error
	DeleteChatSession(ctx context.Context, userID, sessionID string) error

	AppendChatMessage(ctx context.Context, m *model.ChatMessage) error
	ChatMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error)

	Close() error
}
