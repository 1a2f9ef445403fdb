package model

import "time"

// Bar is a single OHLCV observation.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered sequence of bars, ascending by time, built fresh
// per (symbol, range) query and replaced wholesale on the next fetch.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Bars      []Bar     `json:"bars"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Closes extracts the closing-price column.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Trend direction of a quote relative to the reference period.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// SymbolInfo is one search result.
type SymbolInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Quote is the current market snapshot for a symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percentChange"`
	Trend         Trend   `json:"trend"`
}

// NewsItem is one headline tagged with its price direction.
type NewsItem struct {
	Text  string `json:"text"`
	Trend Trend  `json:"trend"`
}

// ValuationMethod is one estimation model's target price and weight.
type ValuationMethod struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Weight float64 `json:"weight"`
}

// Valuation aggregates the provider's target-price estimation.
type Valuation struct {
	ConsensusPrice float64           `json:"consensusPrice"`
	Methods        []ValuationMethod `json:"methods"`
}

// Financials holds the fundamental ratios shown on the dashboard and fed to
// the chat context builder.
type Financials struct {
	PE            float64 `json:"pe"`
	PB            float64 `json:"pb"`
	EPS           float64 `json:"eps"`
	ROE           float64 `json:"roe"`
	ROA           float64 `json:"roa"`
	Beta          float64 `json:"beta"`
	DividendYield float64 `json:"dividendYield"`
}

// OrderBookLevel is one side/level of the displayed order book.
type OrderBookLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Side   string  `json:"side"` // "bid" or "ask"
}

// SymbolData is the full per-symbol payload: quote plus everything the
// detail view and the chat assistant need.
type SymbolData struct {
	Quote
	Financials Financials       `json:"financials"`
	News       []NewsItem       `json:"news"`
	History    PriceSeries      `json:"history"`
	Valuation  *Valuation       `json:"valuation,omitempty"`
	OrderBook  []OrderBookLevel `json:"orderBook,omitempty"`
}
