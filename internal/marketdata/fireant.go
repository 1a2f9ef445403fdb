package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"StockDesk/internal/model"
)

// FireAntClient implements Fetcher against the FireAnt REST API using an
// anonymous bearer token.
type FireAntClient struct {
	apiURL  string
	baseURL string
	client  *http.Client
	tokens  *TokenSource
	limiter *rate.Limiter
	norm    *Normalizer
	log     *zap.Logger
}

// Options configures a FireAntClient.
type Options struct {
	AuthURL string
	APIURL  string
	BaseURL string
	Proxy   string
	RPS     float64
}

// NewFireAntClient creates a client with optional proxy support.
func NewFireAntClient(opts Options, log *zap.Logger) *FireAntClient {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 5
	}
	return &FireAntClient{
		apiURL:  opts.APIURL,
		baseURL: opts.BaseURL,
		client:  httpClient,
		tokens:  NewTokenSource(opts.AuthURL, httpClient, log),
		limiter: rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps))),
		norm:    NewNormalizer(log),
		log:     log,
	}
}

func (f *FireAntClient) Name() string { return "fireant" }

// getJSON performs an authenticated GET and decodes the JSON body into out.
// A 401 invalidates the cached token and retries once with a fresh one.
func (f *FireAntClient) getJSON(ctx context.Context, endpoint string, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		token, err := f.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("acquire token: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", endpoint, err)
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			f.tokens.Invalidate()
			continue
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("fetch %s: status %d, body: %s", endpoint, resp.StatusCode, string(body))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

type searchItem struct {
	Key         string `json:"key"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Search looks up symbols by keyword.
func (f *FireAntClient) Search(ctx context.Context, keywords string) ([]model.SymbolInfo, error) {
	if keywords == "" {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/search?keywords=%s&type=symbol", f.apiURL, url.QueryEscape(keywords))
	var items []searchItem
	if err := f.getJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	out := make([]model.SymbolInfo, 0, len(items))
	for _, it := range items {
		sym := it.Key
		if sym == "" {
			sym = it.Symbol
		}
		if sym == "" {
			continue
		}
		out = append(out, model.SymbolInfo{Symbol: sym, Name: it.Name, Exchange: it.Description})
	}
	return out, nil
}

type fundamental struct {
	MarketCap         float64 `json:"marketCap"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
	PriceChange1y     float64 `json:"priceChange1y"`
}

// Quote derives the current market snapshot from the fundamental endpoint:
// price is market cap over shares outstanding, and the 1-year change stands
// in where no daily change is published.
func (f *FireAntClient) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	endpoint := fmt.Sprintf("%s/symbols/%s/fundamental", f.apiURL, url.PathEscape(symbol))
	var data fundamental
	if err := f.getJSON(ctx, endpoint, &data); err != nil {
		return nil, err
	}

	var price float64
	if data.MarketCap > 0 && data.SharesOutstanding > 0 {
		price = math.Round(data.MarketCap/data.SharesOutstanding*100) / 100
	}

	trend := model.TrendFlat
	if data.PriceChange1y > 0 {
		trend = model.TrendUp
	} else if data.PriceChange1y < 0 {
		trend = model.TrendDown
	}

	return &model.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        data.PriceChange1y,
		PercentChange: data.PriceChange1y / 100,
		Trend:         trend,
	}, nil
}

type histRecord struct {
	Date         string   `json:"date"`
	PriceOpen    *float64 `json:"priceOpen"`
	PriceHigh    *float64 `json:"priceHigh"`
	PriceLow     *float64 `json:"priceLow"`
	PriceClose   *float64 `json:"priceClose"`
	PriceAverage *float64 `json:"priceAverage"`
	DealVolume   *float64 `json:"dealVolume"`
	Volume       *float64 `json:"volume"`
}

// HistoricalQuotes fetches daily bars for the given range and normalizes
// them into an ascending, duplicate-free series.
func (f *FireAntClient) HistoricalQuotes(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/symbols/%s/historical-quotes?startDate=%s&endDate=%s&limit=100",
		f.apiURL, url.PathEscape(symbol),
		url.QueryEscape(from.Format(time.RFC3339)), url.QueryEscape(to.Format(time.RFC3339)))
	var records []histRecord
	if err := f.getJSON(ctx, endpoint, &records); err != nil {
		return model.PriceSeries{}, err
	}

	raw := make([]RawBar, len(records))
	for i, r := range records {
		flat := r.PriceClose
		if flat == nil {
			flat = r.PriceAverage
		}
		vol := r.DealVolume
		if vol == nil {
			vol = r.Volume
		}
		raw[i] = RawBar{
			Date:   r.Date,
			Open:   r.PriceOpen,
			High:   r.PriceHigh,
			Low:    r.PriceLow,
			Close:  r.PriceClose,
			Price:  flat,
			Volume: vol,
		}
	}
	return f.norm.Normalize(symbol, raw), nil
}

// udfResponse is the TradingView-UDF columnar bar format.
type udfResponse struct {
	S string    `json:"s"`
	T []int64   `json:"t"`
	O []float64 `json:"o"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	C []float64 `json:"c"`
	V []float64 `json:"v"`
}

// IntradayBars fetches intraday bars over the last 24 hours at the given
// resolution (minutes, or "D" for daily) from the UDF endpoint.
func (f *FireAntClient) IntradayBars(ctx context.Context, symbol, resolution string, countback int) (model.PriceSeries, error) {
	to := time.Now().Unix()
	from := to - 24*60*60
	endpoint := fmt.Sprintf("%s/tv/history?symbol=%s&resolution=%s&from=%d&to=%d&countback=%d",
		f.baseURL, url.QueryEscape(symbol), url.QueryEscape(resolution), from, to, countback)

	var data udfResponse
	if err := f.getJSON(ctx, endpoint, &data); err != nil {
		return model.PriceSeries{}, err
	}
	if data.S != "ok" || len(data.T) == 0 {
		return model.PriceSeries{Symbol: symbol, FetchedAt: time.Now()}, nil
	}

	// Row-wise conversion; short or missing columns fall back to close.
	col := func(col []float64, i int) *float64 {
		if i < len(col) {
			return &col[i]
		}
		return nil
	}
	raw := make([]RawBar, len(data.T))
	for i := range data.T {
		ts := data.T[i]
		raw[i] = RawBar{
			Timestamp: &ts,
			Open:      col(data.O, i),
			High:      col(data.H, i),
			Low:       col(data.L, i),
			Close:     col(data.C, i),
			Price:     col(data.C, i),
			Volume:    col(data.V, i),
		}
	}
	return f.norm.Normalize(symbol, raw), nil
}

type post struct {
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	Description   string `json:"description"`
	TaggedSymbols []struct {
		Symbol        string  `json:"symbol"`
		PercentChange float64 `json:"percentChange"`
	} `json:"taggedSymbols"`
}

// News fetches the latest headlines tagged with the symbol's direction.
func (f *FireAntClient) News(ctx context.Context, symbol string) ([]model.NewsItem, error) {
	endpoint := fmt.Sprintf("%s/symbols/%s/posts?limit=5", f.apiURL, url.PathEscape(symbol))
	var posts []post
	if err := f.getJSON(ctx, endpoint, &posts); err != nil {
		return nil, err
	}
	out := make([]model.NewsItem, 0, len(posts))
	for _, p := range posts {
		text := p.Title
		if text == "" {
			text = p.Summary
		}
		if text == "" {
			text = p.Description
		}
		if text == "" {
			text = "No content"
		}
		trend := model.TrendDown
		for _, tag := range p.TaggedSymbols {
			if tag.Symbol == symbol && tag.PercentChange >= 0 {
				trend = model.TrendUp
				break
			}
		}
		out = append(out, model.NewsItem{Text: text, Trend: trend})
	}
	return out, nil
}

type estimation struct {
	ComposedPrice         float64 `json:"composedPrice"`
	EstimatedPriceDCF     float64 `json:"estimatedPriceDCF"`
	EstimatedPricePE      float64 `json:"estimatedPricePE"`
	EstimatedPricePB      float64 `json:"estimatedPricePB"`
	EstimatedPriceGraham1 float64 `json:"estimatedPriceGraham1"`
	EstimatedPriceGraham2 float64 `json:"estimatedPriceGraham2"`
	EstimatedPriceGraham3 float64 `json:"estimatedPriceGraham3"`
	ProportionDCF         float64 `json:"proportionDCF"`
	ProportionPE          float64 `json:"proportionPE"`
	ProportionPB          float64 `json:"proportionPB"`
	ProportionGraham1     float64 `json:"proportionGraham1"`
	ProportionGraham2     float64 `json:"proportionGraham2"`
	ProportionGraham3     float64 `json:"proportionGraham3"`
}

// Estimation fetches the provider's target-price models, keeping only
// methods that produced a positive price.
func (f *FireAntClient) Estimation(ctx context.Context, symbol string) (*model.Valuation, error) {
	endpoint := fmt.Sprintf("%s/symbols/%s/estimated-price", f.apiURL, url.PathEscape(symbol))
	var data estimation
	if err := f.getJSON(ctx, endpoint, &data); err != nil {
		return nil, err
	}

	all := []model.ValuationMethod{
		{Name: "DCF", Price: data.EstimatedPriceDCF, Weight: data.ProportionDCF},
		{Name: "P/E", Price: data.EstimatedPricePE, Weight: data.ProportionPE},
		{Name: "P/B", Price: data.EstimatedPricePB, Weight: data.ProportionPB},
		{Name: "Graham 1", Price: data.EstimatedPriceGraham1, Weight: data.ProportionGraham1},
		{Name: "Graham 2", Price: data.EstimatedPriceGraham2, Weight: data.ProportionGraham2},
		{Name: "Graham 3", Price: data.EstimatedPriceGraham3, Weight: data.ProportionGraham3},
	}
	methods := make([]model.ValuationMethod, 0, len(all))
	for _, m := range all {
		if m.Price > 0 {
			methods = append(methods, m)
		}
	}
	return &model.Valuation{ConsensusPrice: data.ComposedPrice, Methods: methods}, nil
}

type finIndicator struct {
	ShortName string  `json:"shortName"`
	Value     float64 `json:"value"`
}

// FinancialIndicators fetches the fundamental ratio sheet.
func (f *FireAntClient) FinancialIndicators(ctx context.Context, symbol string) (model.Financials, error) {
	endpoint := fmt.Sprintf("%s/symbols/%s/financial-indicators", f.apiURL, url.PathEscape(symbol))
	var items []finIndicator
	if err := f.getJSON(ctx, endpoint, &items); err != nil {
		return model.Financials{}, err
	}

	get := func(names ...string) float64 {
		for _, n := range names {
			for _, it := range items {
				if it.ShortName == n && it.Value != 0 {
					return it.Value
				}
			}
		}
		return 0
	}
	fin := model.Financials{
		PE:            get("P/E", "PE"),
		PB:            get("P/B", "PB"),
		EPS:           get("EPS"),
		ROE:           get("ROE"),
		ROA:           get("ROA"),
		Beta:          get("BETA"),
		DividendYield: get("DIV_YIELD", "DIVIDEND_YIELD"),
	}
	if fin.Beta == 0 {
		fin.Beta = 1.0
	}
	return fin, nil
}

// FullData fetches the quote plus financials, news, 30-day history and
// valuation in parallel. A failed auxiliary fetch is logged and its section
// left empty; only a failed quote fails the whole call.
func (f *FireAntClient) FullData(ctx context.Context, symbol string) (*model.SymbolData, error) {
	quote, err := f.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}

	data := &model.SymbolData{Quote: *quote}
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fin, err := f.FinancialIndicators(gctx, symbol)
		if err != nil {
			f.log.Warn("financial indicators unavailable", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}
		data.Financials = fin
		return nil
	})
	g.Go(func() error {
		news, err := f.News(gctx, symbol)
		if err != nil {
			f.log.Warn("news unavailable", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}
		data.News = news
		return nil
	})
	g.Go(func() error {
		hist, err := f.HistoricalQuotes(gctx, symbol, from, to)
		if err != nil {
			f.log.Warn("history unavailable", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}
		data.History = hist
		return nil
	})
	g.Go(func() error {
		val, err := f.Estimation(gctx, symbol)
		if err != nil {
			f.log.Warn("estimation unavailable", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}
		data.Valuation = val
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if quote.Price > 0 {
		// synthetic depth levels for display; no depth feed is available
		data.OrderBook = []model.OrderBookLevel{
			{Price: quote.Price * 0.998, Volume: math.Round(quote.Price * 0.5), Side: "bid"},
			{Price: quote.Price * 0.997, Volume: math.Round(quote.Price * 0.8), Side: "bid"},
			{Price: quote.Price * 1.002, Volume: math.Round(quote.Price * 0.6), Side: "ask"},
			{Price: quote.Price * 1.003, Volume: math.Round(quote.Price * 0.9), Side: "ask"},
		}
	}
	return data, nil
}
