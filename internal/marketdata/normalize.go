package marketdata

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"StockDesk/internal/model"
)

// RawBar is one upstream record before normalization. Feeds disagree on how
// they carry time (Unix seconds, ISO date, or a "D/M" display string) and on
// whether they carry full OHLC or only a flat last-trade price, so every
// field is optional.
type RawBar struct {
	Timestamp *int64   `json:"timestamp,omitempty"`
	Date      string   `json:"date,omitempty"`
	Time      string   `json:"time,omitempty"`
	Open      *float64 `json:"open,omitempty"`
	High      *float64 `json:"high,omitempty"`
	Low       *float64 `json:"low,omitempty"`
	Close     *float64 `json:"close,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
}

// barShape tags which time representation a batch of raw bars uses. The
// batch is classified once and dispatched to one mapper instead of sniffing
// optional fields per access.
type barShape int

const (
	shapeUnknown barShape = iota
	shapeUnix
	shapeISODate
	shapeDayMonth
)

func (s barShape) String() string {
	switch s {
	case shapeUnix:
		return "unix"
	case shapeISODate:
		return "iso-date"
	case shapeDayMonth:
		return "day-month"
	default:
		return "unknown"
	}
}

// classifyShape inspects the batch and returns the first recognizable time
// representation, in the same precedence order used per bar.
func classifyShape(raw []RawBar) barShape {
	for _, r := range raw {
		switch {
		case r.Timestamp != nil:
			return shapeUnix
		case r.Date != "":
			return shapeISODate
		case r.Time != "":
			return shapeDayMonth
		}
	}
	return shapeUnknown
}

// Normalizer converts heterogeneous upstream bar records into canonical
// ascending, duplicate-free price series.
type Normalizer struct {
	log *zap.Logger
	now func() time.Time
}

// NewNormalizer creates a Normalizer. The clock is injectable for tests.
func NewNormalizer(log *zap.Logger) *Normalizer {
	return &Normalizer{log: log, now: time.Now}
}

// Normalize converts raw upstream records into a canonical PriceSeries:
// timestamps resolved per the batch shape, bars sorted ascending, duplicate
// timestamps collapsed to the first occurrence. Malformed bars are not
// dropped; a bar that cannot yield a time is stamped with the current
// instant and logged, since silently fabricating "now" is itself a data
// quality event.
func (n *Normalizer) Normalize(symbol string, raw []RawBar) model.PriceSeries {
	series := model.PriceSeries{Symbol: symbol, FetchedAt: n.now()}
	if len(raw) == 0 {
		return series
	}

	shape := classifyShape(raw)
	if shape == shapeUnknown {
		n.log.Warn("bar batch has no recognizable time field",
			zap.String("symbol", symbol), zap.Int("bars", len(raw)))
	}

	bars := make([]model.Bar, 0, len(raw))
	for i, r := range raw {
		ts, ok := n.resolveTime(r, shape)
		if !ok {
			n.log.Warn("bar timestamp unresolvable, stamping current instant",
				zap.String("symbol", symbol), zap.Int("index", i),
				zap.String("shape", shape.String()))
			ts = n.now()
		}
		bars = append(bars, mapFields(r, ts))
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	// Stable dedup by timestamp equality: first occurrence in sorted order wins.
	out := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, b)
	}
	series.Bars = out
	return series
}

// resolveTime resolves one bar's timestamp. The batch shape picks the
// primary representation; a bar missing that field still falls through the
// standard precedence so one stray record does not poison the batch.
func (n *Normalizer) resolveTime(r RawBar, shape barShape) (time.Time, bool) {
	switch shape {
	case shapeUnix:
		if r.Timestamp != nil {
			return time.Unix(*r.Timestamp, 0).UTC(), true
		}
	case shapeISODate:
		if r.Date != "" {
			if t, err := parseISODate(r.Date); err == nil {
				return t, true
			}
		}
	case shapeDayMonth:
		if r.Time != "" {
			if t, err := n.parseDayMonth(r.Time); err == nil {
				return t, true
			}
		}
	}

	// Fallback chain, first match wins.
	if r.Timestamp != nil {
		return time.Unix(*r.Timestamp, 0).UTC(), true
	}
	if r.Date != "" {
		if t, err := parseISODate(r.Date); err == nil {
			return t, true
		}
	}
	if r.Time != "" {
		if t, err := n.parseDayMonth(r.Time); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseISODate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseDayMonth interprets a "D/M" display string in the current calendar year.
func (n *Normalizer) parseDayMonth(s string) (time.Time, error) {
	var day, month int
	if _, err := fmt.Sscanf(s, "%d/%d", &day, &month); err != nil {
		return time.Time{}, fmt.Errorf("unrecognized day/month %q: %w", s, err)
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("day/month %q out of range", s)
	}
	return time.Date(n.now().Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// mapFields fills one canonical bar. Each OHLC field falls back to the flat
// price, then to 0, so a last-trade-only feed yields a degenerate flat
// candle. Absent volume is reported as 0, never fabricated.
func mapFields(r RawBar, ts time.Time) model.Bar {
	pick := func(v *float64) float64 {
		if v != nil {
			return *v
		}
		if r.Price != nil {
			return *r.Price
		}
		return 0
	}
	vol := 0.0
	if r.Volume != nil {
		vol = *r.Volume
	}
	return model.Bar{
		Time:   ts,
		Open:   pick(r.Open),
		High:   pick(r.High),
		Low:    pick(r.Low),
		Close:  pick(r.Close),
		Volume: vol,
	}
}
