package indicator

import "StockDesk/internal/model"

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// EMA computes the exponential moving average series over the full input,
// seeded with data[0] as the first output value. Output has the same length
// as the input.
func EMA(data []float64, period int) []float64 {
	if len(data) == 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(data))
	out[0] = data[0]
	for i := 1; i < len(data); i++ {
		out[i] = data[i]*k + out[i-1]*(1-k)
	}
	return out
}

// MACD computes the 12/26/9 MACD triple as of the last close. Fewer than 26
// closes yields the zero triple. The signal EMA is seeded from the MACD line
// at index 26 to skip the unstable early region; when that leaves no points
// the reported signal is 0.
func MACD(closes []float64) model.MACD {
	if len(closes) < macdSlow {
		return model.MACD{}
	}

	emaFast := EMA(closes, macdFast)
	emaSlow := EMA(closes, macdSlow)
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}

	signalLine := EMA(macdLine[macdSlow:], macdSignal)

	line := macdLine[len(macdLine)-1]
	signal := 0.0
	if len(signalLine) > 0 {
		signal = signalLine[len(signalLine)-1]
	}
	return model.MACD{Line: line, Signal: signal, Histogram: line - signal}
}
