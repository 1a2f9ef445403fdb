package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StockDesk/internal/indicator"
	"StockDesk/internal/marketdata"
	"StockDesk/internal/model"
)

const scanConcurrency = 4

// Scanner evaluates the classifier over a set of watchlist symbols and keeps
// the most recent result set for serving.
type Scanner struct {
	fetcher marketdata.Fetcher
	log     *zap.Logger

	mu        sync.Mutex
	gen       uint64
	latest    []model.Alert
	scannedAt time.Time
}

func NewScanner(fetcher marketdata.Fetcher, log *zap.Logger) *Scanner {
	return &Scanner{fetcher: fetcher, log: log}
}

// Scan fetches each symbol's full data concurrently, classifies it, and
// stores the batch. Symbols whose fetch or history fails are dropped from
// the batch rather than failing the scan. Overlapping scans resolve
// last-started-wins: a slow older scan cannot clobber a newer result set.
func (s *Scanner) Scan(ctx context.Context, symbols []string) []model.Alert {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	results := make([]*model.Alert, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			data, err := s.fetcher.FullData(gctx, symbol)
			if err != nil {
				s.log.Warn("scan: fetch failed", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			if len(data.History.Bars) == 0 {
				s.log.Warn("scan: no history", zap.String("symbol", symbol))
				return nil
			}

			closes := data.History.Closes()
			rsi := indicator.RSI(closes, 14)
			macd := indicator.MACD(closes)

			price := data.Price
			if price == 0 {
				price = closes[len(closes)-1]
			}
			a := Classify(symbol, price, rsi, macd, closes)
			results[i] = &a
			return nil
		})
	}
	g.Wait()

	alerts := make([]model.Alert, 0, len(symbols))
	for _, a := range results {
		if a != nil {
			alerts = append(alerts, *a)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.latest = alerts
		s.scannedAt = time.Now()
	}
	return alerts
}

// Latest returns the alerts from the most recently completed scan and when
// it ran. The slice is a copy.
func (s *Scanner) Latest() ([]model.Alert, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Alert, len(s.latest))
	copy(out, s.latest)
	return out, s.scannedAt
}
