// Package indicator computes technical indicators over closing-price series.
// All functions are pure: they never mutate their input and carry no state
// between calls. Degenerate inputs resolve to documented neutral values
// rather than errors, so callers only ever branch on emptiness.
package indicator

import "StockDesk/internal/model"

// SMASeries computes the simple moving average over every full trailing
// window of the given period. Each point carries the timestamp of the bar
// that closes its window. Output length is max(0, len(bars)-period+1);
// there is no partial-window padding.
func SMASeries(bars []model.Bar, period int) []model.SMAPoint {
	if period <= 0 || len(bars) < period {
		return nil
	}
	out := make([]model.SMAPoint, 0, len(bars)-period+1)
	sum := 0.0
	for i, b := range bars {
		sum += b.Close
		if i >= period {
			sum -= bars[i-period].Close
		}
		if i >= period-1 {
			out = append(out, model.SMAPoint{Time: b.Time, Value: sum / float64(period)})
		}
	}
	return out
}
