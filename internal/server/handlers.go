package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"StockDesk/internal/auth"
	"StockDesk/internal/model"
	"StockDesk/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.internalError(w, "register", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string      `json:"token"`
	Expires time.Time   `json:"expires"`
	User    *model.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.internalError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, Expires: sess.Expires, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *model.User) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.internalError(w, "logout", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// --- market data ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	results, err := s.fetcher.Search(r.Context(), q)
	if err != nil {
		s.internalError(w, "search", err)
		return
	}
	if results == nil {
		results = []model.SymbolInfo{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request, _ *model.User) {
	symbol := r.PathValue("symbol")
	q, err := s.fetcher.Quote(r.Context(), symbol)
	if err != nil {
		s.upstreamError(w, "quote", symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, _ *model.User) {
	symbol := r.PathValue("symbol")
	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = n
	}
	to := time.Now()
	series, err := s.fetcher.HistoricalQuotes(r.Context(), symbol, to.AddDate(0, 0, -days), to)
	if err != nil {
		s.upstreamError(w, "history", symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleIntraday(w http.ResponseWriter, r *http.Request, _ *model.User) {
	symbol := r.PathValue("symbol")
	resolution := r.URL.Query().Get("resolution")
	if resolution == "" {
		resolution = "15"
	}
	countback := 100
	if c := r.URL.Query().Get("countback"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "countback must be between 1 and 1000")
			return
		}
		countback = n
	}
	series, err := s.fetcher.IntradayBars(r.Context(), symbol, resolution, countback)
	if err != nil {
		s.upstreamError(w, "intraday", symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleFullData(w http.ResponseWriter, r *http.Request, _ *model.User) {
	symbol := r.PathValue("symbol")
	data, err := s.fetcher.FullData(r.Context(), symbol)
	if err != nil {
		s.upstreamError(w, "full data", symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// --- watchlist ---

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request, user *model.User) {
	items, err := s.store.Watchlist(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, "watchlist", err)
		return
	}
	if items == nil {
		items = []model.WatchlistItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request, user *model.User) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	item := &model.WatchlistItem{UserID: user.ID, Symbol: symbol}
	if err := s.store.AddWatchlistItem(r.Context(), item); err != nil {
		s.internalError(w, "watchlist add", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request, user *model.User) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	err := s.store.RemoveWatchlistItem(r.Context(), user.ID, symbol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "symbol not on watchlist")
			return
		}
		s.internalError(w, "watchlist remove", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// --- notes ---

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request, user *model.User) {
	notes, err := s.store.Notes(r.Context(), user.ID, r.URL.Query().Get("symbol"))
	if err != nil {
		s.internalError(w, "notes", err)
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

type noteRequest struct {
	Symbol  string `json:"symbol"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleNoteCreate(w http.ResponseWriter, r *http.Request, user *model.User) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	n := &model.Note{UserID: user.ID, Symbol: req.Symbol, Title: req.Title, Content: req.Content}
	if err := s.store.CreateNote(r.Context(), n); err != nil {
		s.internalError(w, "note create", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleNoteUpdate(w http.ResponseWriter, r *http.Request, user *model.User) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n := &model.Note{ID: r.PathValue("id"), UserID: user.ID,
		Symbol: req.Symbol, Title: req.Title, Content: req.Content}
	if err := s.store.UpdateNote(r.Context(), n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		s.internalError(w, "note update", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleNoteDelete(w http.ResponseWriter, r *http.Request, user *model.User) {
	if err := s.store.DeleteNote(r.Context(), user.ID, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		s.internalError(w, "note delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- alerts ---

type alertsResponse struct {
	Alerts    []model.Alert `json:"alerts"`
	ScannedAt time.Time     `json:"scannedAt"`
}

// handleAlerts serves the caller's slice of the latest scheduled scan.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request, user *model.User) {
	items, err := s.store.Watchlist(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, "alerts", err)
		return
	}
	pinned := make(map[string]bool, len(items))
	for _, it := range items {
		pinned[it.Symbol] = true
	}

	all, scannedAt := s.scanner.Latest()
	alerts := make([]model.Alert, 0, len(items))
	for _, a := range all {
		if pinned[a.Symbol] {
			alerts = append(alerts, a)
		}
	}
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: alerts, ScannedAt: scannedAt})
}

// --- chat ---

func (s *Server) handleChatSessions(w http.ResponseWriter, r *http.Request, user *model.User) {
	sessions, err := s.store.ChatSessions(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, "chat sessions", err)
		return
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleChatSessionCreate(w http.ResponseWriter, r *http.Request, user *model.User) {
	var req struct {
		Symbol string `json:"symbol"`
		Title  string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	cs, err := s.chat.NewSession(r.Context(), user.ID, strings.ToUpper(req.Symbol), req.Title)
	if err != nil {
		s.internalError(w, "chat session create", err)
		return
	}
	writeJSON(w, http.StatusCreated, cs)
}

func (s *Server) handleChatSessionGet(w http.ResponseWriter, r *http.Request, user *model.User) {
	cs, err := s.store.ChatSessionByID(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.internalError(w, "chat session get", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleChatSessionDelete(w http.ResponseWriter, r *http.Request, user *model.User) {
	if err := s.store.DeleteChatSession(r.Context(), user.ID, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.internalError(w, "chat session delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request, user *model.User) {
	msgs, err := s.store.ChatMessages(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.internalError(w, "chat messages", err)
		return
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request, user *model.User) {
	var req struct {
		Content string `json:"content"`
		Symbol  string `json:"symbol"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	reply, err := s.chat.SendMessage(r.Context(), user.ID, r.PathValue("id"),
		strings.ToUpper(req.Symbol), req.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.internalError(w, "chat send", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// --- error helpers ---

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("handler failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) upstreamError(w http.ResponseWriter, op, symbol string, err error) {
	s.log.Warn("upstream fetch failed",
		zap.String("op", op), zap.String("symbol", symbol), zap.Error(err))
	writeError(w, http.StatusBadGateway, "market data unavailable")
}
