package marketdata

import (
	"context"
	"time"

	"StockDesk/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Symbols  []model.SymbolInfo
	QuoteVal *model.Quote
	History  model.PriceSeries
	Full     *model.SymbolData
	Err      error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Search(_ context.Context, _ string) ([]model.SymbolInfo, error) {
	return m.Symbols, m.Err
}

func (m *MockFetcher) Quote(_ context.Context, symbol string) (*model.Quote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.QuoteVal != nil {
		return m.QuoteVal, nil
	}
	return &model.Quote{Symbol: symbol, Price: 100, Trend: model.TrendFlat}, nil
}

func (m *MockFetcher) HistoricalQuotes(_ context.Context, symbol string, _, _ time.Time) (model.PriceSeries, error) {
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	if m.History.Bars != nil {
		return m.History, nil
	}
	return GenerateMockSeries(symbol, 100, 30), nil
}

func (m *MockFetcher) IntradayBars(_ context.Context, symbol, _ string, countback int) (model.PriceSeries, error) {
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	return GenerateMockSeries(symbol, 100, countback), nil
}

func (m *MockFetcher) FullData(_ context.Context, symbol string) (*model.SymbolData, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Full != nil {
		return m.Full, nil
	}
	series := GenerateMockSeries(symbol, 100, 30)
	last := series.Bars[len(series.Bars)-1].Close
	return &model.SymbolData{
		Quote:   model.Quote{Symbol: symbol, Price: last, Trend: model.TrendFlat},
		History: series,
	}, nil
}

// GenerateMockSeries builds a deterministic drifting daily series ending today.
func GenerateMockSeries(symbol string, basePrice float64, count int) model.PriceSeries {
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
}
