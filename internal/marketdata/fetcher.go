package marketdata

import (
	"context"
	"time"

	"StockDesk/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	Search(ctx context.Context, keywords string) ([]model.SymbolInfo, error)
	Quote(ctx context.Context, symbol string) (*model.Quote, error)
	HistoricalQuotes(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error)
	IntradayBars(ctx context.Context, symbol, resolution string, countback int) (model.PriceSeries, error)
	FullData(ctx context.Context, symbol string) (*model.SymbolData, error)
	Name() string
}
