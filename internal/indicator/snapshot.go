package indicator

import "StockDesk/internal/model"

const (
	rsiPeriod = 14
	smaShort  = 10
	smaLong   = 50
)

// Compute derives the full indicator snapshot for one price series.
func Compute(series *model.PriceSeries) model.IndicatorSnapshot {
	closes := series.Closes()
	return model.IndicatorSnapshot{
		RSI:   RSI(closes, rsiPeriod),
		MACD:  MACD(closes),
		SMA10: SMASeries(series.Bars, smaShort),
		SMA50: SMASeries(series.Bars, smaLong),
	}
}
