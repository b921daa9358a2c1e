// Package fallback produces deterministic placeholder records when a
// provider is unreachable or unconfigured. Every record it emits is tagged
// with the mock origin so downstream consumers can tell synthesized data
// from live data.
package fallback

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/finbridge/finbridge/internal/models"
)

// Responder synthesizes capability responses for one provider. The same
// ticker always yields the same records, so callers and tests can rely on
// stable output.
type Responder struct {
	provider string
	now      func() time.Time
}

// Option configures a Responder.
type Option func(*Responder)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) { r.now = now }
}

// New creates a Responder for one provider.
func New(provider string, opts ...Option) *Responder {
	r := &Responder{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// seed derives a stable per-ticker seed so synthesized numbers are
// reproducible without any shared state.
func seed(ticker string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(ticker)))
	return h.Sum64()
}

func basePrice(ticker string) float64 {
	return 20 + float64(seed(ticker)%48000)/100
}

func (r *Responder) companyName(ticker string) string {
	return strings.ToUpper(ticker) + " Holdings (placeholder)"
}

// SearchCompanies returns a single synthetic match echoing the query.
func (r *Responder) SearchCompanies(query string) []models.CompanySummary {
	ticker := strings.ToUpper(strings.TrimSpace(query))
	if ticker == "" {
		return nil
	}
	return []models.CompanySummary{{
		Ticker:   ticker,
		Name:     r.companyName(ticker),
		Exchange: "XNAS",
		Region:   "US",
		Currency: "USD",
		Origin:   models.OriginMock,
	}}
}

// CompanyProfile returns a synthetic profile for the ticker.
func (r *Responder) CompanyProfile(ticker string) *models.Profile {
	ticker = strings.ToUpper(ticker)
	s := seed(ticker)
	return &models.Profile{
		Ticker:      ticker,
		Name:        r.companyName(ticker),
		Description: fmt.Sprintf("Placeholder profile for %s; the live provider was unavailable.", ticker),
		Sector:      "Diversified",
		Industry:    "Conglomerates",
		Exchange:    "XNAS",
		Country:     "US",
		Website:     fmt.Sprintf("https://example.com/%s", strings.ToLower(ticker)),
		Employees:   int64(1000 + s%200000),
		MarketCap:   basePrice(ticker) * float64(1_000_000+s%900_000_000),
		Origin:      models.OriginMock,
	}
}

// Quote returns a synthetic quote around the ticker's stable base price.
func (r *Responder) Quote(ticker string) *models.Quote {
	ticker = strings.ToUpper(ticker)
	price := basePrice(ticker)
	prev := price * 0.99
	return &models.Quote{
		Ticker:        ticker,
		Price:         price,
		Open:          prev * 1.002,
		High:          price * 1.01,
		Low:           prev * 0.995,
		PreviousClose: prev,
		Change:        price - prev,
		ChangePercent: (price - prev) / prev * 100,
		Volume:        int64(100_000 + seed(ticker)%5_000_000),
		TradingDay:    r.now().UTC().Format("2006-01-02"),
		Origin:        models.OriginMock,
	}
}

// Financials returns two synthetic reporting periods.
func (r *Responder) Financials(ticker, period string) []models.FinancialStatement {
	ticker = strings.ToUpper(ticker)
	if period == "" {
		period = "annual"
	}
	s := seed(ticker)
	revenue := float64(500_000_000 + s%9_000_000_000)

	year := r.now().UTC().Year() - 1
	statements := make([]models.FinancialStatement, 0, 2)
	for i := 0; i < 2; i++ {
		scale := 1.0 - 0.07*float64(i)
		statements = append(statements, models.FinancialStatement{
			Ticker:          ticker,
			Period:          period,
			FiscalDateEnd:   fmt.Sprintf("%d-12-31", year-i),
			Currency:        "USD",
			Revenue:         revenue * scale,
			GrossProfit:     revenue * scale * 0.42,
			OperatingIncome: revenue * scale * 0.21,
			NetIncome:       revenue * scale * 0.15,
			TotalAssets:     revenue * scale * 2.1,
			TotalLiability:  revenue * scale * 1.2,
			Origin:          models.OriginMock,
		})
	}
	return statements
}

// CompanyNews returns limit synthetic headlines, newest first.
func (r *Responder) CompanyNews(ticker string, limit int) []models.NewsItem {
	ticker = strings.ToUpper(ticker)
	if limit <= 0 {
		limit = 10
	}
	items := make([]models.NewsItem, 0, limit)
	for i := 0; i < limit; i++ {
		published := r.now().UTC().Add(-time.Duration(i+1) * 6 * time.Hour).Format(time.RFC3339)
		items = append(items, models.NewsItem{
			Ticker:      ticker,
			Headline:    fmt.Sprintf("%s market update %d (placeholder)", ticker, i+1),
			Summary:     "Synthesized article returned because the news provider was unavailable.",
			Source:      "finbridge-fallback",
			URL:         fmt.Sprintf("https://example.com/news/%s/%d", strings.ToLower(ticker), i+1),
			PublishedAt: published,
			Origin:      models.OriginMock,
		})
	}
	return items
}

// Executives returns a fixed synthetic officer slate.
func (r *Responder) Executives(ticker string) []models.Executive {
	ticker = strings.ToUpper(ticker)
	return []models.Executive{
		{Ticker: ticker, Name: "Placeholder Chief Executive", Title: "Chief Executive Officer", Since: "2019-01-01", Origin: models.OriginMock},
		{Ticker: ticker, Name: "Placeholder Finance Chief", Title: "Chief Financial Officer", Since: "2021-06-01", Origin: models.OriginMock},
	}
}

// intervalStep maps a bar interval to the spacing between synthetic bars.
func intervalStep(interval string) time.Duration {
	switch interval {
	case "weekly":
		return 7 * 24 * time.Hour
	case "monthly":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// HistoricalPrices returns a deterministic bar series of the requested
// length at the requested interval, ending yesterday.
func (r *Responder) HistoricalPrices(ticker, interval string, size int) []models.PricePoint {
	ticker = strings.ToUpper(ticker)
	if size <= 0 {
		size = 30
	}
	step := intervalStep(interval)
	price := basePrice(ticker)
	s := seed(ticker)

	end := r.now().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)
	points := make([]models.PricePoint, 0, size)
	for i := size - 1; i >= 0; i-- {
		day := end.Add(-time.Duration(i) * step)
		// small deterministic walk around the base price
		drift := float64((s>>(uint(i)%32))%200)/1000 - 0.1
		close := price * (1 + drift)
		points = append(points, models.PricePoint{
			Ticker:    ticker,
			Timestamp: day.Format("2006-01-02"),
			Open:      close * 0.997,
			High:      close * 1.006,
			Low:       close * 0.991,
			Close:     close,
			Volume:    int64(100_000 + (s+uint64(i))%3_000_000),
			Origin:    models.OriginMock,
		})
	}
	return points
}

// Filings returns a synthetic recent-filings list of the requested length,
// newest first: a 10-K followed by three quarterly 10-Qs, repeating on a
// three-month cadence backwards from today.
func (r *Responder) Filings(ticker string, limit int) []models.Filing {
	ticker = strings.ToUpper(ticker)
	if limit <= 0 {
		limit = 20
	}
	base := r.now().UTC()
	filings := make([]models.Filing, 0, limit)
	for i := 0; i < limit; i++ {
		filed := base.AddDate(0, -3*i, 0)
		form := "10-Q"
		if i%4 == 0 {
			form = "10-K"
		}
		filings = append(filings, models.Filing{
			Ticker:          ticker,
			CIK:             "0000000000",
			AccessionNumber: fmt.Sprintf("0000000000-%02d-%06d", filed.Year()%100, i+1),
			FormType:        form,
			FilingDate:      filed.Format("2006-01-02"),
			ReportDate:      filed.AddDate(0, -1, 0).Format("2006-01-02"),
			PrimaryDocument: fmt.Sprintf("placeholder-%s-%d.htm", strings.ToLower(form), i+1),
			URL:             fmt.Sprintf("https://example.com/filings/%s/%d", strings.ToLower(ticker), i+1),
			Origin:          models.OriginMock,
		})
	}
	return filings
}
