// Package alert turns indicator snapshots into BUY/SELL/HOLD alerts and
// scans watchlists on a schedule.
package alert

import (
	"StockDesk/internal/model"
)

const breakoutWindow = 20

// Classify evaluates the rule set over the latest indicator values and
// returns an alert carrying the triggered signal and its reasons.
//
// Rules are checked in a fixed order. An opposing rule never overwrites an
// already-set signal: a SELL from RSI stays SELL even when MACD later turns
// bullish, and vice versa. The reason messages accumulate regardless.
func Classify(symbol string, price, rsi float64, macd model.MACD, closes []float64) model.Alert {
	a := model.Alert{
		Symbol: symbol,
		Price:  price,
		RSI:    rsi,
		MACD:   macd,
		Signal: model.SignalHold,
	}

	if rsi < 30 {
		a.Signal = model.SignalBuy
		a.Messages = append(a.Messages, "RSI quá bán (<30)")
	} else if rsi > 70 {
		a.Signal = model.SignalSell
		a.Messages = append(a.Messages, "RSI quá mua (>70)")
	}

	if macd.Histogram > 0 && macd.Line > macd.Signal {
		a.Messages = append(a.Messages, "MACD cắt lên")
		if a.Signal != model.SignalSell {
			a.Signal = model.SignalBuy
		}
	} else if macd.Histogram < 0 && macd.Line < macd.Signal {
		a.Messages = append(a.Messages, "MACD cắt xuống")
		if a.Signal != model.SignalBuy {
			a.Signal = model.SignalSell
		}
	}

	if isBreakout(closes) {
		a.Messages = append(a.Messages, "Vượt đỉnh gần nhất")
		if a.Signal != model.SignalSell {
			a.Signal = model.SignalBuy
		}
	}

	return a
}

// isBreakout reports whether the latest close exceeds the highest close of
// the preceding bars inside the breakout window. Requires more than a full
// window of history so the comparison base is never empty.
func isBreakout(closes []float64) bool {
	if len(closes) <= breakoutWindow {
		return false
	}
	window := closes[len(closes)-breakoutWindow:]
	latest := window[len(window)-1]
	high := window[0]
	for _, c := range window[:len(window)-1] {
		if c > high {
			high = c
		}
	}
	return latest > high
}
