package model

import "time"

// User is a registered dashboard account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is an opaque login token with expiry.
type Session struct {
	Token   string    `json:"token"`
	UserID  string    `json:"userId"`
	Expires time.Time `json:"expires"`
}

// WatchlistItem pins one symbol for one user.
type WatchlistItem struct {
	UserID    string    `json:"userId"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"createdAt"`
}

// Note is a free-form user note, optionally tied to a symbol.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Symbol    string    `json:"symbol,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatRole distinguishes who wrote a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Symbol    string    `json:"symbol,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatMessage is one turn in a chat session.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Symbol    string    `json:"symbol,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
