package alert

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StockDesk/internal/marketdata"
	"StockDesk/internal/model"
)

// flakyFetcher fails FullData for the listed symbols and delegates the rest.
type flakyFetcher struct {
	marketdata.MockFetcher
	fail map[string]bool
}

func (f *flakyFetcher) FullData(ctx context.Context, symbol string) (*model.SymbolData, error) {
	if f.fail[symbol] {
		return nil, fmt.Errorf("upstream down for %s", symbol)
	}
	return f.MockFetcher.FullData(ctx, symbol)
}

func TestScanner_Scan(t *testing.T) {
	s := NewScanner(&marketdata.MockFetcher{}, zap.NewNop())

	alerts := s.Scan(context.Background(), []string{"HPG", "VNM", "FPT"})
	require.Len(t, alerts, 3)

	// batch preserves watchlist order despite concurrent fetches
	assert.Equal(t, "HPG", alerts[0].Symbol)
	assert.Equal(t, "VNM", alerts[1].Symbol)
	assert.Equal(t, "FPT", alerts[2].Symbol)
	for _, a := range alerts {
		assert.NotZero(t, a.Price)
		assert.NotZero(t, a.RSI)
	}
}

func TestScanner_FailedSymbolDropped(t *testing.T) {
	f := &flakyFetcher{fail: map[string]bool{"VNM": true}}
	s := NewScanner(f, zap.NewNop())

	alerts := s.Scan(context.Background(), []string{"HPG", "VNM", "FPT"})
	require.Len(t, alerts, 2)
	assert.Equal(t, "HPG", alerts[0].Symbol)
	assert.Equal(t, "FPT", alerts[1].Symbol)
}

func TestScanner_Latest(t *testing.T) {
	s := NewScanner(&marketdata.MockFetcher{}, zap.NewNop())

	got, at := s.Latest()
	assert.Empty(t, got)
	assert.True(t, at.IsZero())

	s.Scan(context.Background(), []string{"HPG"})

	got, at = s.Latest()
	require.Len(t, got, 1)
	assert.Equal(t, "HPG", got[0].Symbol)
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	// Latest hands out a copy
	got[0].Symbol = "mutated"
	again, _ := s.Latest()
	assert.Equal(t, "HPG", again[0].Symbol)
}

func TestScanner_EmptyWatchlist(t *testing.T) {
	s := NewScanner(&marketdata.MockFetcher{}, zap.NewNop())
	alerts := s.Scan(context.Background(), nil)
	assert.Empty(t, alerts)
}

func TestScanner_NoHistoryDropped(t *testing.T) {
	f := &marketdata.MockFetcher{Full: &model.SymbolData{
		Quote: model.Quote{Symbol: "NEW", Price: 10},
	}}
	s := NewScanner(f, zap.NewNop())

	alerts := s.Scan(context.Background(), []string{"NEW"})
	assert.Empty(t, alerts)
}
