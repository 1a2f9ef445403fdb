package model

import "time"

// MACD holds the last values of the MACD line, its signal line, and the
// histogram (line minus signal).
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// SMAPoint is one moving-average value paired with the timestamp of the bar
// that closes its window.
type SMAPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// IndicatorSnapshot is the derived technical state for one price series.
// Recomputed in full on every series change; never persisted.
type IndicatorSnapshot struct {
	RSI   float64    `json:"rsi"`
	MACD  MACD       `json:"macd"`
	SMA10 []SMAPoint `json:"sma10"`
	SMA50 []SMAPoint `json:"sma50"`
}
