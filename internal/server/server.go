// Package server exposes the dashboard's REST API.
package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"StockDesk/internal/alert"
	"StockDesk/internal/auth"
	"StockDesk/internal/chat"
	"StockDesk/internal/marketdata"
	"StockDesk/internal/store"
)

// Server wires the HTTP surface over the domain services.
type Server struct {
	auth    *auth.Service
	store   store.Store
	fetcher marketdata.Fetcher
	scanner *alert.Scanner
	chat    *chat.Service
	log     *zap.Logger

	httpServer *http.Server
}

func New(addr string, authSvc *auth.Service, st store.Store, fetcher marketdata.Fetcher,
	scanner *alert.Scanner, chatSvc *chat.Service, log *zap.Logger) *Server {
	s := &Server{
		auth:    authSvc,
		store:   st,
		fetcher: fetcher,
		scanner: scanner,
		chat:    chatSvc,
		log:     log,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/v1/search", s.handleSearch)

	// authenticated
	mux.HandleFunc("POST /api/v1/auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET /api/v1/symbols/{symbol}/quote", s.requireAuth(s.handleQuote))
	mux.HandleFunc("GET /api/v1/symbols/{symbol}/history", s.requireAuth(s.handleHistory))
	mux.HandleFunc("GET /api/v1/symbols/{symbol}/intraday", s.requireAuth(s.handleIntraday))
	mux.HandleFunc("GET /api/v1/symbols/{symbol}/full", s.requireAuth(s.handleFullData))

	mux.HandleFunc("GET /api/v1/watchlist", s.requireAuth(s.handleWatchlist))
	mux.HandleFunc("POST /api/v1/watchlist", s.requireAuth(s.handleWatchlistAdd))
	mux.HandleFunc("DELETE /api/v1/watchlist/{symbol}", s.requireAuth(s.handleWatchlistRemove))

	mux.HandleFunc("GET /api/v1/notes", s.requireAuth(s.handleNotes))
	mux.HandleFunc("POST /api/v1/notes", s.requireAuth(s.handleNoteCreate))
	mux.HandleFunc("PUT /api/v1/notes/{id}", s.requireAuth(s.handleNoteUpdate))
	mux.HandleFunc("DELETE /api/v1/notes/{id}", s.requireAuth(s.handleNoteDelete))

	mux.HandleFunc("GET /api/v1/alerts", s.requireAuth(s.handleAlerts))

	mux.HandleFunc("GET /api/v1/chat/sessions", s.requireAuth(s.handleChatSessions))
	mux.HandleFunc("POST /api/v1/chat/sessions", s.requireAuth(s.handleChatSessionCreate))
	mux.HandleFunc("GET /api/v1/chat/sessions/{id}", s.requireAuth(s.handleChatSessionGet))
	mux.HandleFunc("DELETE /api/v1/chat/sessions/{id}", s.requireAuth(s.handleChatSessionDelete))
	mux.HandleFunc("GET /api/v1/chat/sessions/{id}/messages", s.requireAuth(s.handleChatMessages))
	mux.HandleFunc("POST /api/v1/chat/sessions/{id}/messages", s.requireAuth(s.handleChatSend))

	return s.withLogging(mux)
}

// Start blocks serving HTTP until the listener closes.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
