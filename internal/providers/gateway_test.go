package providers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/mapping"
	"github.com/finbridge/finbridge/internal/models"
	"github.com/finbridge/finbridge/internal/oauth"
	"github.com/finbridge/finbridge/test/mocks"
)

type gatewayFixture struct {
	gateway   *Gateway
	linknet   *LinkNet
	transport *mocks.MockTransport
}

func newGatewayFixture(t *testing.T, marketKey string, linknetConfigured bool) *gatewayFixture {
	t.Helper()
	transport := mocks.NewMockTransport()

	snapshotPath := filepath.Join(t.TempDir(), "tickers.json")
	snapshot := map[string]mapping.Entry{
		"AAPL": {ID: "0000320193", Name: "Apple Inc."},
	}
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(snapshotPath, data, 0o644))

	newExec := func(provider, base string) *executor.Executor {
		return executor.New(executor.Options{
			Provider:      provider,
			BaseURL:       base,
			MaxRetries:    1,
			BackoffFactor: time.Millisecond,
			Client:        transport.Client(),
		})
	}

	edgarExec := newExec("edgar", "https://data.sec.gov")
	cache := mapping.New(config.MappingConfig{
		SnapshotPath:    snapshotPath,
		SourceURL:       "https://www.sec.gov/files/company_tickers.json",
		RefreshInterval: 7 * 24 * time.Hour,
		SearchLimit:     10,
	}, edgarExec, nil)
	require.NoError(t, cache.Load())

	edgar := NewEdgar(config.EdgarConfig{
		BaseURL:   "https://data.sec.gov",
		UserAgent: "FinBridge test@example.com",
	}, edgarExec, cache, nil, nil)

	lnCfg := oauth.Config{
		Provider:    "linknet",
		AuthURL:     "https://ln.example.com/oauth/authorize",
		TokenURL:    "https://ln.example.com/oauth/token",
		RedirectURI: "http://localhost:8412/auth/linknet/callback",
	}
	if linknetConfigured {
		lnCfg.ClientID = "client-123"
		lnCfg.ClientSecret = "secret-456"
	}
	manager := oauth.NewManager(lnCfg, newExec("linknet", "https://ln.example.com"), nil)
	linknet := NewLinkNet(manager, nil, nil)

	market := NewMarketData(config.MarketDataConfig{
		BaseURL: "https://market.example.com",
		APIKey:  marketKey,
	}, newExec("marketdata", "https://market.example.com"), nil, nil)

	news := NewNewsWire(config.NewsWireConfig{
		BaseURL: "https://news.example.com",
		APIKey:  "nw-key",
	}, newExec("newswire", "https://news.example.com"), nil, nil)

	return &gatewayFixture{
		gateway:   NewGateway(edgar, linknet, market, news, nil),
		linknet:   linknet,
		transport: transport,
	}
}

func TestGateway_SearchPrefersMarketData(t *testing.T) {
	f := newGatewayFixture(t, "k1", false)
	f.transport.SetResponse("https://market.example.com/v1/search?apikey=k1&query=apple",
		&mocks.MockResponse{StatusCode: 200, Body: map[string]interface{}{
			"results": []map[string]interface{}{
				{"symbol": "AAPL", "name": "Apple Inc.", "exchange": "XNAS"},
			},
		}})

	results, err := f.gateway.SearchCompanies(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.OriginLive, results[0].Origin)
}

func TestGateway_SearchFallsThroughToLocalTable(t *testing.T) {
	f := newGatewayFixture(t, "", false)

	results, err := f.gateway.SearchCompanies(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL", results[0].Ticker)
	assert.Equal(t, "0000320193", results[0].ExternalID)
	assert.Empty(t, f.transport.GetRequests())
}

func TestGateway_SearchNoLocalMatchServesSynthetic(t *testing.T) {
	f := newGatewayFixture(t, "", false)

	results, err := f.gateway.SearchCompanies(context.Background(), "zzzz")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, models.OriginMock, r.Origin)
	}
}

func TestGateway_ProfileRoutesByAuthState(t *testing.T) {
	f := newGatewayFixture(t, "k1", true)

	f.transport.SetResponse("https://market.example.com/v1/profile?apikey=k1&symbol=AAPL",
		&mocks.MockResponse{StatusCode: 200, Body: map[string]interface{}{
			"symbol": "AAPL", "name": "Apple Inc. (market)",
		}})
	f.transport.SetResponse("https://ln.example.com/rest/organizations?ticker=AAPL",
		&mocks.MockResponse{StatusCode: 200, Body: map[string]interface{}{
			"localizedName": "Apple Inc. (network)",
		}})

	t.Run("unauthenticated session uses market data", func(t *testing.T) {
		profile, err := f.gateway.GetCompanyProfile(context.Background(), "sess-anon", "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc. (market)", profile.Name)
	})

	t.Run("authenticated session uses the delegated provider", func(t *testing.T) {
		authenticate(t, f.linknet, f.transport, "sess-auth")
		f.transport.SetResponse("https://ln.example.com/rest/organizations?ticker=AAPL",
			&mocks.MockResponse{StatusCode: 200, Body: map[string]interface{}{
				"localizedName": "Apple Inc. (network)",
			}})

		profile, err := f.gateway.GetCompanyProfile(context.Background(), "sess-auth", "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc. (network)", profile.Name)
	})
}

func TestGateway_FilingsSurfaceUnknownTicker(t *testing.T) {
	f := newGatewayFixture(t, "", false)

	_, err := f.gateway.GetFilings(context.Background(), "ZZZZ", "", 0)
	assert.Error(t, err)
}

func TestGateway_QuoteAndNewsRouting(t *testing.T) {
	f := newGatewayFixture(t, "k1", false)
	f.transport.SetResponse("https://market.example.com/v1/quote?apikey=k1&symbol=AAPL",
		mocks.MockQuoteResponse("AAPL", 210))
	f.transport.SetResponse("https://news.example.com/v2/news?limit=10&symbol=AAPL",
		&mocks.MockResponse{StatusCode: 200, Body: map[string]interface{}{
			"articles": []map[string]interface{}{
				{"headline": "h", "published_at": "2026-08-27T09:00:00Z"},
			},
		}})

	quote, err := f.gateway.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 210.0, quote.Price)

	items, err := f.gateway.GetCompanyNews(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.OriginLive, items[0].Origin)
}

func TestGateway_Clients(t *testing.T) {
	f := newGatewayFixture(t, "", false)

	clients := f.gateway.Clients()
	require.Len(t, clients, 4)

	names := make([]string, 0, len(clients))
	for _, c := range clients {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"edgar", "linknet", "marketdata", "newswire"}, names)
}
