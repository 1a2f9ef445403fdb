package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestClient wires a FireAntClient against a single httptest server that
// serves both the auth endpoint and the API endpoints.
func newTestClient(t *testing.T, handler http.HandlerFunc) *FireAntClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accessToken":"test-token"}`))
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewFireAntClient(Options{
		AuthURL: srv.URL + "/oauth/token",
		APIURL:  srv.URL,
		BaseURL: srv.URL,
		RPS:     1000,
	}, zap.NewNop())
	c.client = srv.Client()
	c.tokens.client = srv.Client()
	return c
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "hpg", r.URL.Query().Get("keywords"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"key":"HPG","name":"Hoa Phat Group","description":"HOSE"},
			{"symbol":"HPX","name":"Hai Phat","description":"HOSE"},
			{"name":"no symbol at all"}
		]`))
	})

	got, err := c.Search(context.Background(), "hpg")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "HPG", got[0].Symbol)
	assert.Equal(t, "Hoa Phat Group", got[0].Name)
	assert.Equal(t, "HOSE", got[0].Exchange)
	assert.Equal(t, "HPX", got[1].Symbol)
}

func TestSearch_EmptyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty query")
	})
	got, err := c.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuote_PriceFromMarketCap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/symbols/HPG/fundamental", r.URL.Path)
		w.Write([]byte(`{"marketCap":150000,"sharesOutstanding":1000,"priceChange1y":12.5}`))
	})

	q, err := c.Quote(context.Background(), "HPG")
	require.NoError(t, err)
	assert.Equal(t, 150.0, q.Price)
	assert.Equal(t, 12.5, q.Change)
	assert.Equal(t, 0.125, q.PercentChange)
	assert.Equal(t, "HPG", q.Symbol)
	assert.Equal(t, "up", string(q.Trend))
}

func TestQuote_RetriesOnUnauthorized(t *testing.T) {
	var apiCalls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&apiCalls, 1) == 1 {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"marketCap":1000,"sharesOutstanding":10,"priceChange1y":-1}`))
	})

	q, err := c.Quote(context.Background(), "VNM")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Price)
	assert.Equal(t, "down", string(q.Trend))
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiCalls))
}

func TestHistoricalQuotes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/symbols/FPT/historical-quotes", r.URL.Path)
		w.Write([]byte(`[
			{"date":"2025-07-02","priceOpen":100,"priceHigh":105,"priceLow":99,"priceClose":104,"dealVolume":1200},
			{"date":"2025-07-01","priceOpen":98,"priceHigh":101,"priceLow":97,"priceClose":100,"volume":900},
			{"date":"2025-07-03","priceAverage":106}
		]`))
	})

	series, err := c.HistoricalQuotes(context.Background(), "FPT",
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, series.Bars, 3)

	// sorted ascending regardless of feed order
	assert.Equal(t, 100.0, series.Bars[0].Close)
	assert.Equal(t, 900.0, series.Bars[0].Volume)
	assert.Equal(t, 104.0, series.Bars[1].Close)
	// average-only record degrades to a flat candle
	assert.Equal(t, 106.0, series.Bars[2].Close)
	assert.Equal(t, 106.0, series.Bars[2].Open)
}

func TestIntradayBars_UDFColumns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tv/history", r.URL.Path)
		assert.Equal(t, "15", r.URL.Query().Get("resolution"))
		w.Write([]byte(`{
			"s":"ok",
			"t":[1700000100,1700000000],
			"o":[10,9],
			"h":[11,10],
			"l":[9,8],
			"c":[10.5,9.5],
			"v":[100,200]
		}`))
	})

	series, err := c.IntradayBars(context.Background(), "HPG", "15", 100)
	require.NoError(t, err)
	require.Len(t, series.Bars, 2)
	assert.Equal(t, int64(1700000000), series.Bars[0].Time.Unix())
	assert.Equal(t, 9.5, series.Bars[0].Close)
	assert.Equal(t, 10.5, series.Bars[1].Close)
	assert.Equal(t, 100.0, series.Bars[1].Volume)
}

func TestIntradayBars_NoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"s":"no_data"}`))
	})

	series, err := c.IntradayBars(context.Background(), "HPG", "15", 100)
	require.NoError(t, err)
	assert.Empty(t, series.Bars)
}

func TestEstimation_FiltersZeroPrices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"composedPrice":120,
			"estimatedPriceDCF":130,"proportionDCF":0.4,
			"estimatedPricePE":0,
			"estimatedPriceGraham1":110,"proportionGraham1":0.2
		}`))
	})

	val, err := c.Estimation(context.Background(), "FPT")
	require.NoError(t, err)
	assert.Equal(t, 120.0, val.ConsensusPrice)
	require.Len(t, val.Methods, 2)
	assert.Equal(t, "DCF", val.Methods[0].Name)
	assert.Equal(t, "Graham 1", val.Methods[1].Name)
}

func TestFinancialIndicators_AltNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"shortName":"PE","value":18.4},
			{"shortName":"ROE","value":22.5},
			{"shortName":"DIVIDEND_YIELD","value":2.5}
		]`))
	})

	fin, err := c.FinancialIndicators(context.Background(), "VNM")
	require.NoError(t, err)
	assert.Equal(t, 18.4, fin.PE)
	assert.Equal(t, 22.5, fin.ROE)
	assert.Equal(t, 2.5, fin.DividendYield)
	assert.Equal(t, 1.0, fin.Beta) // defaulted when missing
}

func TestFullData_ToleratesPartialFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/symbols/HPG/fundamental":
			w.Write([]byte(`{"marketCap":2000,"sharesOutstanding":10,"priceChange1y":5}`))
		case "/symbols/HPG/historical-quotes":
			w.Write([]byte(`[{"date":"2025-07-01","priceClose":200,"dealVolume":10}]`))
		default:
			http.Error(w, "unavailable", http.StatusInternalServerError)
		}
	})

	data, err := c.FullData(context.Background(), "HPG")
	require.NoError(t, err)
	assert.Equal(t, 200.0, data.Price)
	require.Len(t, data.History.Bars, 1)
	assert.Empty(t, data.News)
	assert.Nil(t, data.Valuation)
	assert.Len(t, data.OrderBook, 4)
}

func TestFullData_QuoteFailureFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})

	_, err := c.FullData(context.Background(), "HPG")
	assert.Error(t, err)
}
