package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"StockDesk/internal/model"
)

func TestEMA_SeededFromFirstValue(t *testing.T) {
	data := []float64{10, 20, 30}
	out := EMA(data, 9)

	assert.Len(t, out, 3)
	assert.Equal(t, 10.0, out[0])

	k := 2.0 / 10.0
	assert.InDelta(t, 20*k+10*(1-k), out[1], 1e-12)
}

func TestEMA_Empty(t *testing.T) {
	assert.Nil(t, EMA(nil, 9))
}

func TestMACD_InsufficientHistory(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	assert.Equal(t, model.MACD{}, MACD(closes))
	assert.Equal(t, model.MACD{}, MACD(nil))
}

func TestMACD_ConstantSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 5.0
	}
	got := MACD(closes)
	assert.Equal(t, 0.0, got.Line)
	assert.Equal(t, 0.0, got.Signal)
	assert.Equal(t, 0.0, got.Histogram)
}

func TestMACD_RisingSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	got := MACD(closes)
	// Fast EMA tracks a rising series closer than slow EMA.
	assert.Greater(t, got.Line, 0.0)
	assert.Greater(t, got.Histogram, 0.0)
	assert.InDelta(t, got.Line-got.Signal, got.Histogram, 1e-12)
}

func TestMACD_ExactlySlowPeriod(t *testing.T) {
	// With exactly 26 closes the signal series is empty and reports 0,
	// leaving histogram == line.
	closes := make([]float64, 26)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	got := MACD(closes)
	assert.Equal(t, 0.0, got.Signal)
	assert.Equal(t, got.Line, got.Histogram)
}
