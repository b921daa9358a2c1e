package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/fallback"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/metrics"
	"github.com/finbridge/finbridge/internal/models"
)

// MarketData serves quotes, profiles, fundamentals and price history from
// the market-data REST API. Auth is a static API key passed as a query
// parameter; without a key the adapter serves fallback data only.
type MarketData struct {
	exec      *executor.Executor
	auth      executor.AuthProvider
	responder *fallback.Responder
	logger    *logging.Logger
	metrics   *metrics.Metrics
	live      bool
}

// NewMarketData creates the market-data adapter.
func NewMarketData(cfg config.MarketDataConfig, exec *executor.Executor, logger *logging.Logger, m *metrics.Metrics) *MarketData {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &MarketData{
		exec:      exec,
		auth:      executor.APIKeyQuery{Provider: "marketdata", Param: "apikey", Key: cfg.APIKey},
		responder: fallback.New("marketdata"),
		logger:    logger,
		metrics:   m,
		live:      cfg.APIKey != "",
	}
}

func (p *MarketData) Name() string { return "marketdata" }

func (p *MarketData) Capabilities() []Capability {
	return []Capability{CapSearch, CapProfile, CapQuote, CapFinancials, CapExecutives, CapHistorical}
}

func (p *MarketData) Live() bool { return p.live }

// fetch runs one GET and unmarshals the payload into out. A nil error
// means out is populated; any failure is already classified for degrade().
func (p *MarketData) fetch(ctx context.Context, endpoint string, query url.Values, out interface{}) (string, error) {
	if !p.live {
		return "unconfigured", &executorNotLive{}
	}
	resp, err := p.exec.Execute(ctx, executor.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Query:    query,
	}, p.auth)
	if err != nil {
		return "unreachable", err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return "bad_payload", err
	}
	return "", nil
}

type executorNotLive struct{}

func (e *executorNotLive) Error() string { return "adapter not configured" }

type searchMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

// SearchCompanies queries the symbol-search endpoint.
func (p *MarketData) SearchCompanies(ctx context.Context, query string) ([]models.CompanySummary, error) {
	q := url.Values{}
	q.Set("query", query)

	var payload struct {
		Results []searchMatch `json:"results"`
	}
	if reason, err := p.fetch(ctx, "/v1/search", q, &payload); reason != "" {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapSearch, reason, err)
		return p.responder.SearchCompanies(query), nil
	}

	results := make([]models.CompanySummary, 0, len(payload.Results))
	for _, match := range payload.Results {
		results = append(results, models.CompanySummary{
			Ticker:   strings.ToUpper(match.Symbol),
			Name:     match.Name,
			Exchange: match.Exchange,
			Region:   match.Region,
			Currency: match.Currency,
			Origin:   models.OriginLive,
		})
	}
	return results, nil
}

// GetCompanyProfile fetches and normalizes the company overview.
func (p *MarketData) GetCompanyProfile(ctx context.Context, ticker string) (*models.Profile, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	q := url.Values{}
	q.Set("symbol", ticker)

	var payload struct {
		Symbol      string  `json:"symbol"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Sector      string  `json:"sector"`
		Industry    string  `json:"industry"`
		Exchange    string  `json:"exchange"`
		Country     string  `json:"country"`
		Website     string  `json:"website"`
		Employees   int64   `json:"employees"`
		MarketCap   float64 `json:"market_cap"`
	}
	if reason, err := p.fetch(ctx, "/v1/profile", q, &payload); reason != "" {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapProfile, reason, err)
		return p.responder.CompanyProfile(ticker), nil
	}

	return &models.Profile{
		Ticker:      ticker,
		Name:        payload.Name,
		Description: payload.Description,
		Sector:      payload.Sector,
		Industry:    payload.Industry,
		Exchange:    payload.Exchange,
		Country:     payload.Country,
		Website:     payload.Website,
		Employees:   payload.Employees,
		MarketCap:   payload.MarketCap,
		Origin:      models.OriginLive,
	}, nil
}

// GetQuote fetches and normalizes the latest quote. Absent numeric fields
// stay zero rather than failing the whole record.
func (p *MarketData) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	q := url.Values{}
	q.Set("symbol", ticker)

	var payload struct {
		Symbol        string  `json:"symbol"`
		Price         float64 `json:"price"`
		Open          float64 `json:"open"`
		High          float64 `json:"high"`
		Low           float64 `json:"low"`
		PreviousClose float64 `json:"previous_close"`
		Volume        int64   `json:"volume"`
		TradingDay    string  `json:"trading_day"`
	}
	if reason, err := p.fetch(ctx, "/v1/quote", q, &payload); reason != "" {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapQuote, reason, err)
		return p.responder.Quote(ticker), nil
	}

	quote := &models.Quote{
		Ticker:        ticker,
		Price:         payload.Price,
		Open:          payload.Open,
		High:          payload.High,
		Low:           payload.Low,
		PreviousClose: payload.PreviousClose,
		Volume:        payload.Volume,
		TradingDay:    payload.TradingDay,
		Origin:        models.OriginLive,
	}
	if quote.PreviousClose != 0 {
		quote.Change = quote.Price - quote.PreviousClose
		quote.ChangePercent = quote.Change / quote.PreviousClose * 100
	}
	return quote, nil
}

// GetFinancials fetches normalized statements for the period
// ("annual" or "quarterly").
func (p *MarketData) GetFinancials(ctx context.Context, ticker, period string) ([]models.FinancialStatement, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if period == "" {
		period = "annual"
	}
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("period", period)

	var payload struct {
		Statements []struct {
			FiscalDateEnd   string  `json:"fiscal_date_end"`
			Currency        string  `json:"currency"`
			Revenue         float64 `json:"revenue"`
			GrossProfit     float64 `json:"gross_profit"`
			OperatingIncome float64 `json:"operating_income"`
			NetIncome       float64 `json:"net_income"`
			TotalAssets     float64 `json:"total_assets"`
			TotalLiability  float64 `json:"total_liabilities"`
		} `json:"statements"`
	}
	if reason, err := p.fetch(ctx, "/v1/financials", q, &payload); reason != "" {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapFinancials, reason, err)
		return p.responder.Financials(ticker, period), nil
	}

	statements := make([]models.FinancialStatement, 0, len(payload.Statements))
	for _, s := range payload.Statements {
		statements = append(statements, models.FinancialStatement{
			Ticker:          ticker,
			Period:          period,
			FiscalDateEnd:   s.FiscalDateEnd,
			Currency:        s.Currency,
			Revenue:         s.Revenue,
			GrossProfit:     s.GrossProfit,
			OperatingIncome: s.OperatingIncome,
			NetIncome:       s.NetIncome,
			TotalAssets:     s.TotalAssets,
			TotalLiability:  s.TotalLiability,
			Origin:          models.OriginLive,
		})
	}
	return statements, nil
}

// GetExecutives fetches the officer list.
func (p *MarketData) GetExecutives(ctx context.Context, ticker string) ([]models.Executive, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	q := url.Values{}
	q.Set("symbol", ticker)

	var payload struct {
		Executives []struct {
			Name  string `json:"name"`
			Title string `json:"title"`
			Since string `json:"since"`
		} `json:"executives"`
	}
	if reason, err := p.fetch(ctx, "/v1/executives", q, &payload); reason != "" {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapExecutives, reason, err)
		return p.responder.Executives(ticker), nil
	}

	executives := make([]models.Executive, 0, len(payload.Executives))
	for _, e := range payload.Executives {
		executives = append(executives, models.Executive{
			Ticker: ticker,
			Name:   e.Name,
			Title:  e.Title,
			Since:  e.Since,
			Origin: models.OriginLive,
		})
	}
	return executives, nil
}

// GetHistoricalPrices fetches a bar series at the given interval ("daily",
// "weekly" or "monthly") with up to size bars, newest last.
func (p *MarketData) GetHistoricalPrices(ctx context.Context, ticker, interval string, size int) ([]models.PricePoint, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		interval = "daily"
	}
	if size <= 0 {
		size = 30
	}
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("interval", interval)
	q.Set("size", strconv.Itoa(size))

	var payload struct {
		Bars []struct {
			Date   string  `json:"date"`
			Open   float64 `json:"open"`
			High   float64 `json:"high"`
			Low    float64 `json:"low"`
			Close  float64 `json:"close"`
			Volume int64   `json:"volume"`
		} `json:"bars"`
	}
	if reason, err := p.fetch(ctx, "/v1/prices", q, &payload); reason != "" {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapHistorical, reason, err)
		return p.responder.HistoricalPrices(ticker, interval, size), nil
	}

	points := make([]models.PricePoint, 0, len(payload.Bars))
	for _, bar := range payload.Bars {
		points = append(points, models.PricePoint{
			Ticker:    ticker,
			Timestamp: bar.Date,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
			Origin:    models.OriginLive,
		})
	}
	return points, nil
}
