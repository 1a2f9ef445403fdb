package model

// Signal is the discrete trading signal produced by the classifier.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Alert is one watchlist symbol's classification for a single refresh cycle.
// Held only in transient view state, never persisted.
type Alert struct {
	Symbol   string   `json:"symbol"`
	Price    float64  `json:"price"`
	RSI      float64  `json:"rsi"`
	MACD     MACD     `json:"macd"`
	Signal   Signal   `json:"signal"`
	Messages []string `json:"messages"`
}
