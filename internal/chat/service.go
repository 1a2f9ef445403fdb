package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"StockDesk/internal/marketdata"
	"StockDesk/internal/model"
	"StockDesk/internal/store"
)

// DefaultSessionTitle is given to new conversations until the first message
// supplies a better one.
const DefaultSessionTitle = "Cuộc trò chuyện mới"

const titleRuneLimit = 50

// Service runs the assistant conversation loop: persist the user's message,
// gather market context, call the model, persist and return its reply.
type Service struct {
	store   store.Store
	fetcher marketdata.Fetcher
	llm     Generator
	log     *zap.Logger
}

func NewService(st store.Store, fetcher marketdata.Fetcher, llm Generator, log *zap.Logger) *Service {
	return &Service{store: st, fetcher: fetcher, llm: llm, log: log}
}

// NewSession opens a conversation, optionally pinned to a symbol.
func (s *Service) NewSession(ctx context.Context, userID, symbol, title string) (*model.ChatSession, error) {
	if title == "" {
		title = DefaultSessionTitle
	}
	cs := &model.ChatSession{UserID: userID, Title: title, Symbol: symbol}
	if err := s.store.CreateChatSession(ctx, cs); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	return cs, nil
}

// SendMessage appends the user's message, asks the model for a reply with
// the session history and fresh market data as context, and stores both
// sides of the exchange. A failed market-data fetch degrades to an
// analysis-without-data context instead of failing the message.
func (s *Service) SendMessage(ctx context.Context, userID, sessionID, symbol, text string) (*model.ChatMessage, error) {
	session, err := s.store.ChatSessionByID(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if symbol == "" {
		symbol = session.Symbol
	}

	history, err := s.store.ChatMessages(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	var marketContext string
	if symbol != "" {
		data, err := s.fetcher.FullData(ctx, symbol)
		if err != nil {
			s.log.Warn("market data unavailable for chat context",
				zap.String("symbol", symbol), zap.Error(err))
			data = nil
		}
		marketContext = BuildContext(symbol, data)
	}

	userMsg := &model.ChatMessage{
		SessionID: sessionID, UserID: userID,
		Role: model.RoleUser, Content: text, Symbol: symbol,
	}
	if err := s.store.AppendChatMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}

	reply, err := s.llm.Generate(ctx, text, turns, marketContext)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	assistantMsg := &model.ChatMessage{
		SessionID: sessionID, UserID: userID,
		Role: model.RoleAssistant, Content: reply, Symbol: symbol,
	}
	if err := s.store.AppendChatMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	if session.Title == DefaultSessionTitle && len(history) == 0 {
		session.Title = titleFromMessage(text)
		if err := s.store.UpdateChatSession(ctx, session); err != nil {
			s.log.Warn("auto-title failed", zap.String("session", sessionID), zap.Error(err))
		}
	}

	return assistantMsg, nil
}

// titleFromMessage derives a session title from the first message,
// truncating on rune boundaries.
func titleFromMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= titleRuneLimit {
		return text
	}
	return string(runes[:titleRuneLimit]) + "..."
}
