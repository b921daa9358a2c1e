package providers

import (
	"context"

	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/models"
)

// Gateway routes each capability to its preferred provider. Routing is
// decided per call: delegated-auth data sources are used only when the
// caller's session actually holds a token, otherwise the capability falls
// through to the keyed provider. The adapters themselves absorb provider
// failures, so gateway calls do not fail for unreachable upstreams.
type Gateway struct {
	edgar   *Edgar
	linknet *LinkNet
	market  *MarketData
	news    *NewsWire
	logger  *logging.Logger
}

// NewGateway wires the four adapters into one dispatch surface.
func NewGateway(edgar *Edgar, linknet *LinkNet, market *MarketData, news *NewsWire, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Gateway{
		edgar:   edgar,
		linknet: linknet,
		market:  market,
		news:    news,
		logger:  logger,
	}
}

// Clients returns the adapters behind the gateway, for status reporting.
func (g *Gateway) Clients() []Client {
	return []Client{g.edgar, g.linknet, g.market, g.news}
}

// SearchCompanies prefers the market-data search endpoint and falls through
// to the local identifier table when that provider is not configured.
func (g *Gateway) SearchCompanies(ctx context.Context, query string) ([]models.CompanySummary, error) {
	if g.market.Live() {
		return g.market.SearchCompanies(ctx, query)
	}
	if results, err := g.edgar.SearchCompanies(ctx, query); err == nil && len(results) > 0 {
		return results, nil
	}
	return g.market.SearchCompanies(ctx, query)
}

// GetCompanyProfile serves the professional-network profile when the
// session is authorized there, otherwise the market-data profile.
func (g *Gateway) GetCompanyProfile(ctx context.Context, sessionID, ticker string) (*models.Profile, error) {
	if g.linknet.Live() && g.linknet.Auth().Authenticated(sessionID) {
		return g.linknet.GetCompanyProfile(ctx, sessionID, ticker)
	}
	return g.market.GetCompanyProfile(ctx, ticker)
}

// GetQuote serves the latest quote.
func (g *Gateway) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return g.market.GetQuote(ctx, ticker)
}

// GetFinancials serves normalized statements for the period.
func (g *Gateway) GetFinancials(ctx context.Context, ticker, period string) ([]models.FinancialStatement, error) {
	return g.market.GetFinancials(ctx, ticker, period)
}

// GetCompanyNews serves up to limit recent articles for the ticker.
func (g *Gateway) GetCompanyNews(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	return g.news.GetCompanyNews(ctx, ticker, limit)
}

// GetExecutives serves the officer roster, preferring the
// professional-network data when the session is authorized there.
func (g *Gateway) GetExecutives(ctx context.Context, sessionID, ticker string) ([]models.Executive, error) {
	if g.linknet.Live() && g.linknet.Auth().Authenticated(sessionID) {
		return g.linknet.GetExecutives(ctx, sessionID, ticker)
	}
	return g.market.GetExecutives(ctx, ticker)
}

// GetHistoricalPrices serves a bar series at the requested interval with up
// to size bars.
func (g *Gateway) GetHistoricalPrices(ctx context.Context, ticker, interval string, size int) ([]models.PricePoint, error) {
	return g.market.GetHistoricalPrices(ctx, ticker, interval, size)
}

// GetFilings serves the recent regulatory filings for the ticker. Unknown
// tickers surface as ErrNotFound from the identifier mapping.
func (g *Gateway) GetFilings(ctx context.Context, ticker, formType string, limit int) ([]models.Filing, error) {
	return g.edgar.GetFilings(ctx, ticker, formType, limit)
}
