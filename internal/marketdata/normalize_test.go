package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func f(v float64) *float64 { return &v }
func i64(v int64) *int64   { return &v }

func testNormalizer(now time.Time) *Normalizer {
	n := NewNormalizer(zap.NewNop())
	n.now = func() time.Time { return now }
	return n
}

func TestNormalize_UnixShape(t *testing.T) {
	n := testNormalizer(time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC))
	raw := []RawBar{
		{Timestamp: i64(1_700_000_200), Open: f(10), High: f(12), Low: f(9), Close: f(11), Volume: f(500)},
		{Timestamp: i64(1_700_000_100), Open: f(9), High: f(11), Low: f(8), Close: f(10), Volume: f(300)},
	}

	series := n.Normalize("HPG", raw)

	require.Len(t, series.Bars, 2)
	// sorted ascending
	assert.Equal(t, int64(1_700_000_100), series.Bars[0].Time.Unix())
	assert.Equal(t, int64(1_700_000_200), series.Bars[1].Time.Unix())
	assert.Equal(t, 10.0, series.Bars[0].Close)
}

func TestNormalize_ISODateShape(t *testing.T) {
	n := testNormalizer(time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC))
	raw := []RawBar{
		{Date: "2025-07-30T00:00:00Z", Close: f(51)},
		{Date: "2025-07-29", Close: f(50)},
	}

	series := n.Normalize("VNM", raw)

	require.Len(t, series.Bars, 2)
	assert.Equal(t, 50.0, series.Bars[0].Close)
	assert.Equal(t, 51.0, series.Bars[1].Close)
}

func TestNormalize_DayMonthShape(t *testing.T) {
	now := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	n := testNormalizer(now)
	raw := []RawBar{
		{Time: "04/01", Price: f(1285)},
		{Time: "02/01", Price: f(1275)},
	}

	series := n.Normalize("VNINDEX", raw)

	require.Len(t, series.Bars, 2)
	// "D/M" is day/month in the current calendar year.
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), series.Bars[0].Time)
	assert.Equal(t, time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), series.Bars[1].Time)
}

func TestNormalize_FlatPriceFallback(t *testing.T) {
	n := testNormalizer(time.Now())
	raw := []RawBar{{Timestamp: i64(1_700_000_000), Price: f(42)}}

	series := n.Normalize("SSI", raw)

	require.Len(t, series.Bars, 1)
	b := series.Bars[0]
	// a last-trade-only feed yields a degenerate flat candle
	assert.Equal(t, 42.0, b.Open)
	assert.Equal(t, 42.0, b.High)
	assert.Equal(t, 42.0, b.Low)
	assert.Equal(t, 42.0, b.Close)
	assert.Equal(t, 0.0, b.Volume)
}

func TestNormalize_MissingFieldsDefaultZero(t *testing.T) {
	n := testNormalizer(time.Now())
	raw := []RawBar{{Timestamp: i64(1_700_000_000)}}

	series := n.Normalize("SSI", raw)

	require.Len(t, series.Bars, 1)
	assert.Equal(t, 0.0, series.Bars[0].Close)
	assert.Equal(t, 0.0, series.Bars[0].Volume)
}

func TestNormalize_DedupKeepsFirstSorted(t *testing.T) {
	n := testNormalizer(time.Now())
	raw := []RawBar{
		{Timestamp: i64(200), Close: f(2)},
		{Timestamp: i64(100), Close: f(1)},
		{Timestamp: i64(100), Close: f(99)}, // same instant, later in input
	}

	series := n.Normalize("MWG", raw)

	require.Len(t, series.Bars, 2)
	assert.Equal(t, 1.0, series.Bars[0].Close)
	assert.Equal(t, 2.0, series.Bars[1].Close)
}

func TestNormalize_SortedNoDuplicates(t *testing.T) {
	n := testNormalizer(time.Now())
	raw := []RawBar{
		{Timestamp: i64(300), Close: f(3)},
		{Timestamp: i64(100), Close: f(1)},
		{Timestamp: i64(300), Close: f(4)},
		{Timestamp: i64(200), Close: f(2)},
	}

	series := n.Normalize("FPT", raw)

	for i := 1; i < len(series.Bars); i++ {
		assert.True(t, series.Bars[i-1].Time.Before(series.Bars[i].Time),
			"bars must be strictly increasing after normalization")
	}
}

func TestNormalize_UnresolvableStampsNow(t *testing.T) {
	now := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	n := testNormalizer(now)
	raw := []RawBar{{Time: "garbage", Close: f(7)}}

	series := n.Normalize("VIC", raw)

	require.Len(t, series.Bars, 1)
	// malformed bars are kept with the current-instant sentinel, not dropped
	assert.Equal(t, now, series.Bars[0].Time)
	assert.Equal(t, 7.0, series.Bars[0].Close)
}

func TestNormalize_MixedBatchFallsThrough(t *testing.T) {
	n := testNormalizer(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	// batch classified as unix by its first record; the stray date-only
	// record still resolves through the fallback chain
	raw := []RawBar{
		{Timestamp: i64(1_700_000_000), Close: f(1)},
		{Date: "2025-07-29", Close: f(2)},
	}

	series := n.Normalize("VCB", raw)
	require.Len(t, series.Bars, 2)
}

func TestNormalize_Empty(t *testing.T) {
	n := testNormalizer(time.Now())
	series := n.Normalize("ACB", nil)
	assert.Empty(t, series.Bars)
}
