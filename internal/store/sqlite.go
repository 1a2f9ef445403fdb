package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"StockDesk/internal/model"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
// Foreign keys are enabled through the DSN so every pooled connection gets
// the pragma, not just the first.
func NewSQLiteStore(dbPath string, log *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads do not block the chat and watchlist writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			token   TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,

		`CREATE TABLE IF NOT EXISTS watchlist (
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			symbol     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,

		`CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			symbol     TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id)`,

		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title      TEXT NOT NULL,
			symbol     TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id)`,

		`CREATE TABLE IF NOT EXISTS chat_messages (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			symbol     TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func isUniqueErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, now.Unix(), now.Unix())
	if isUniqueErr(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = ?`, email))
}

func (s *SQLiteStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var created, updated int64
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0)
	u.UpdatedAt = time.Unix(updated, 0)
	return &u, nil
}

// --- sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires) VALUES (?,?,?)`,
		sess.Token, sess.UserID, sess.Expires.Unix())
	return err
}

func (s *SQLiteStore) SessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires FROM sessions WHERE token = ?`, token).
		Scan(&sess.Token, &sess.UserID, &expires)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Expires = time.Unix(expires, 0)
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// --- watchlist ---

// AddWatchlistItem is idempotent: re-pinning an already pinned symbol keeps
// the original pin time.
func (s *SQLiteStore) AddWatchlistItem(ctx context.Context, item *model.WatchlistItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (user_id, symbol, created_at) VALUES (?,?,?)
		 ON CONFLICT (user_id, symbol) DO NOTHING`,
		item.UserID, item.Symbol, item.CreatedAt.Unix())
	return err
}

func (s *SQLiteStore) RemoveWatchlistItem(ctx context.Context, userID, symbol string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Watchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, symbol, created_at FROM watchlist WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.WatchlistItem
	for rows.Next() {
		var it model.WatchlistItem
		var created int64
		if err := rows.Scan(&it.UserID, &it.Symbol, &created); err != nil {
			return nil, err
		}
		it.CreatedAt = time.Unix(created, 0)
		items = append(items, it)
	}
	return items, rows.Err()
}

// AllWatchlistSymbols returns the distinct symbols pinned by any user, for
// the scheduled alert scan.
func (s *SQLiteStore) AllWatchlistSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// --- notes ---

func (s *SQLiteStore) CreateNote(ctx context.Context, n *model.Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now()
	n.CreatedAt, n.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, symbol, title, content, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
		n.ID, n.UserID, n.Symbol, n.Title, n.Content, now.Unix(), now.Unix())
	return err
}

func (s *SQLiteStore) UpdateNote(ctx context.Context, n *model.Note) error {
	n.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET symbol = ?, title = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		n.Symbol, n.Title, n.Content, n.UpdatedAt.Unix(), n.ID, n.UserID)
	if err != nil {
		return err
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, userID, noteID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND user_id = ?`, noteID, userID)
	if err != nil {
		return err
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return ErrNotFound
	}
	return nil
}

// Notes lists a user's notes newest-first, optionally filtered by symbol.
func (s *SQLiteStore) Notes(ctx context.Context, userID, symbol string) ([]model.Note, error) {
	query := `SELECT id, user_id, symbol, title, content, created_at, updated_at
		FROM notes WHERE user_id = ?`
	args := []any{userID}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY updated_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		var created, updated int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Symbol, &n.Title, &n.Content, &created, &updated); err != nil {
			return nil, err
		}
		n.CreatedAt = time.Unix(created, 0)
		n.UpdatedAt = time.Unix(updated, 0)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// --- chat sessions ---

func (s *SQLiteStore) CreateChatSession(ctx context.Context, cs *model.ChatSession) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	now := time.Now()
	cs.CreatedAt, cs.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, symbol, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		cs.ID, cs.UserID, cs.Title, cs.Symbol, now.Unix(), now.Unix())
	return err
}

func (s *SQLiteStore) ChatSessionByID(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	var cs model.ChatSession
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, symbol, created_at, updated_at FROM chat_sessions WHERE id = ? AND user_id = ?`,
		sessionID, userID).
		Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.Symbol, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cs.CreatedAt = time.Unix(created, 0)
	cs.UpdatedAt = time.Unix(updated, 0)
	return &cs, nil
}

// ChatSessions lists a user's conversations, most recently active first.
func (s *SQLiteStore) ChatSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, symbol, created_at, updated_at
		 FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ChatSession
	for rows.Next() {
		var cs model.ChatSession
		var created, updated int64
		if err := rows.Scan(&cs.ID, &cs.UserID, &cs.Title, &cs.Symbol, &created, &updated); err != nil {
			return nil, err
		}
		cs.CreatedAt = time.Unix(created, 0)
		cs.UpdatedAt = time.Unix(updated, 0)
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) UpdateChatSession(ctx context.Context, cs *model.ChatSession) error {
	cs.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET title = ?, symbol = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		cs.Title, cs.Symbol, cs.UpdatedAt.Unix(), cs.ID, cs.UserID)
	if err != nil {
		return err
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteChatSession(ctx context.Context, userID, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return err
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return ErrNotFound
	}
	return nil
}

// --- chat messages ---

// AppendChatMessage stores the message and bumps the owning session's
// activity time so session listings stay ordered by last message.
func (s *SQLiteStore) AppendChatMessage(ctx context.Context, m *model.ChatMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, user_id, role, content, symbol, created_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.SessionID, m.UserID, string(m.Role), m.Content, m.Symbol, m.CreatedAt.Unix()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
		m.CreatedAt.Unix(), m.SessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// ChatMessages returns the session's messages in send order, verifying the
// session belongs to the user.
func (s *SQLiteStore) ChatMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if _, err := s.ChatSessionByID(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_id, role, content, symbol, created_at
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		var role string
		var created int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &role, &m.Content, &m.Symbol, &created); err != nil {
			return nil, err
		}
		m.Role = model.ChatRole(role)
		m.CreatedAt = time.Unix(created, 0)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.log.Info("closing sqlite store")
	return s.db.Close()
}
