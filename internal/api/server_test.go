package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/mapping"
	"github.com/finbridge/finbridge/internal/oauth"
	"github.com/finbridge/finbridge/internal/providers"
	"github.com/finbridge/finbridge/test/mocks"
)

type serverFixture struct {
	server    *Server
	transport *mocks.MockTransport
}

func newServerFixture(t *testing.T, marketKey string, linknetConfigured bool) *serverFixture {
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

	edgar := providers.NewEdgar(config.EdgarConfig{
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
	linknet := providers.NewLinkNet(manager, nil, nil)

	market := providers.NewMarketData(config.MarketDataConfig{
		BaseURL: "https://market.example.com",
		APIKey:  marketKey,
	}, newExec("marketdata", "https://market.example.com"), nil, nil)

	news := providers.NewNewsWire(config.NewsWireConfig{
		BaseURL: "https://news.example.com",
		APIKey:  "nw-key",
	}, newExec("newswire", "https://news.example.com"), nil, nil)

	gateway := providers.NewGateway(edgar, linknet, market, news, nil)
	server := NewServer(config.ServerConfig{Host: "127.0.0.1", HTTPPort: 8412}, gateway, linknet, cache, nil, nil)

	return &serverFixture{server: server, transport: transport}
}

func (f *serverFixture) do(method, target, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t, "k1", false)

	w := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["mapping_entries"])

	modes, ok := body["providers"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "live", modes["edgar"])
	assert.Equal(t, "live", modes["marketdata"])
	assert.Equal(t, "fallback", modes["linknet"])
	assert.Equal(t, "live", modes["newswire"])
}

func TestSearchEndpoint(t *testing.T) {
	f := newServerFixture(t, "k1", false)
	f.transport.SetResponse("https://market.example.com/v1/search?apikey=k1&query=apple",
		&mocks.MockResponse{StatusCode: 200, Body: map[string]interface{}{
			"results": []map[string]interface{}{
				{"symbol": "AAPL", "name": "Apple Inc."},
			},
		}})

	t.Run("missing query", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/search", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("results", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/search?q=apple", "")
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		results, ok := body["results"].([]interface{})
		require.True(t, ok)
		assert.Len(t, results, 1)
	})
}

func TestQuoteEndpoint(t *testing.T) {
	f := newServerFixture(t, "k1", false)
	f.transport.SetResponse("https://market.example.com/v1/quote?apikey=k1&symbol=AAPL",
		mocks.MockQuoteResponse("AAPL", 200))

	w := f.do(http.MethodGet, "/api/v1/companies/AAPL/quote", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "AAPL", body["ticker"])
	assert.Equal(t, 200.0, body["price"])
	assert.Equal(t, "live", body["origin"])
}

func TestQuoteEndpoint_FallbackTagged(t *testing.T) {
	f := newServerFixture(t, "", false)

	w := f.do(http.MethodGet, "/api/v1/companies/AAPL/quote", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mock", decodeBody(t, w)["origin"])
}

func TestFinancialsEndpoint_RejectsBadPeriod(t *testing.T) {
	f := newServerFixture(t, "", false)

	w := f.do(http.MethodGet, "/api/v1/companies/AAPL/financials?period=daily", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPricesEndpoint_RejectsBadParams(t *testing.T) {
	f := newServerFixture(t, "", false)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/companies/AAPL/prices?size=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/companies/AAPL/prices?size=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/companies/AAPL/prices?interval=hourly", "").Code)
}

func TestPricesEndpoint_HonorsIntervalAndSize(t *testing.T) {
	f := newServerFixture(t, "", false)

	// no market key: the series is synthesized, one bar per requested slot
	w := f.do(http.MethodGet, "/api/v1/companies/AAPL/prices?interval=weekly&size=4", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	prices, ok := body["prices"].([]interface{})
	require.True(t, ok)
	assert.Len(t, prices, 4)
}

func TestNewsEndpoint(t *testing.T) {
	f := newServerFixture(t, "", false)

	t.Run("bad limit", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/companies/AAPL/news?limit=zero", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limit shapes the degraded response", func(t *testing.T) {
		// the news upstream is not mocked, so the adapter degrades; the
		// substitute list still has the requested length
		w := f.do(http.MethodGet, "/api/v1/companies/AAPL/news?limit=4", "")
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		articles, ok := body["articles"].([]interface{})
		require.True(t, ok)
		assert.Len(t, articles, 4)

		first, ok := articles[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "mock", first["origin"])
	})
}

func TestFilingsEndpoint(t *testing.T) {
	f := newServerFixture(t, "", false)
	f.transport.SetResponse("https://data.sec.gov/submissions/CIK0000320193.json", mocks.MockSubmissionsResponse())

	t.Run("known ticker", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/companies/AAPL/filings", "")
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		filings, ok := body["filings"].([]interface{})
		require.True(t, ok)
		assert.Len(t, filings, 2)
	})

	t.Run("unknown ticker is 404", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/companies/ZZZZ/filings", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/companies/AAPL/filings?limit=zero", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOAuthLogin(t *testing.T) {
	t.Run("redirects to the provider", func(t *testing.T) {
		f := newServerFixture(t, "", true)

		w := f.do(http.MethodGet, "/auth/linknet/login", "sess-1")
		require.Equal(t, http.StatusFound, w.Code)

		location, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "ln.example.com", location.Host)
		assert.Equal(t, "client-123", location.Query().Get("client_id"))
		assert.Len(t, location.Query().Get("state"), 64)
		assert.Equal(t, "r_organization_profile", location.Query().Get("scope"))
	})

	t.Run("unconfigured client is 503", func(t *testing.T) {
		f := newServerFixture(t, "", false)
		w := f.do(http.MethodGet, "/auth/linknet/login", "sess-1")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("unknown provider is 404", func(t *testing.T) {
		f := newServerFixture(t, "", true)
		w := f.do(http.MethodGet, "/auth/other/login", "sess-1")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOAuthCallback(t *testing.T) {
	t.Run("full round trip authenticates the session", func(t *testing.T) {
		f := newServerFixture(t, "", true)
		f.transport.SetResponse("https://ln.example.com/oauth/token", mocks.MockTokenResponse("tok-abc", 3600))

		login := f.do(http.MethodGet, "/auth/linknet/login", "sess-1")
		require.Equal(t, http.StatusFound, login.Code)
		location, err := url.Parse(login.Header().Get("Location"))
		require.NoError(t, err)
		state := location.Query().Get("state")

		w := f.do(http.MethodGet, "/auth/linknet/callback?code=auth-code&state="+state, "sess-1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "authenticated", decodeBody(t, w)["status"])

		// the authenticated session is now routed to the delegated provider
		f.transport.SetResponse("https://ln.example.com/rest/organizations?ticker=AAPL",
			&mocks.MockResponse{StatusCode: 200, Body: map[string]interface{}{
				"localizedName": "Apple Inc. (network)",
			}})
		profile := f.do(http.MethodGet, "/api/v1/companies/AAPL/profile", "sess-1")
		require.Equal(t, http.StatusOK, profile.Code)
		assert.Equal(t, "Apple Inc. (network)", decodeBody(t, profile)["name"])
	})

	t.Run("forged state is 403 and never reaches the token endpoint", func(t *testing.T) {
		f := newServerFixture(t, "", true)

		login := f.do(http.MethodGet, "/auth/linknet/login", "sess-1")
		require.Equal(t, http.StatusFound, login.Code)

		w := f.do(http.MethodGet, "/auth/linknet/callback?code=auth-code&state=forged", "sess-1")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, f.transport.GetRequests())
	})

	t.Run("missing code is 400", func(t *testing.T) {
		f := newServerFixture(t, "", true)
		w := f.do(http.MethodGet, "/auth/linknet/callback?state=abc", "sess-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("provider error is 502", func(t *testing.T) {
		f := newServerFixture(t, "", true)
		w := f.do(http.MethodGet, "/auth/linknet/callback?error=access_denied", "sess-1")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestOAuthLogout(t *testing.T) {
	f := newServerFixture(t, "", true)
	f.transport.SetResponse("https://ln.example.com/oauth/token", mocks.MockTokenResponse("tok-abc", 3600))

	login := f.do(http.MethodGet, "/auth/linknet/login", "sess-1")
	location, err := url.Parse(login.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")

	require.Equal(t, http.StatusOK,
		f.do(http.MethodGet, "/auth/linknet/callback?code=auth-code&state="+state, "sess-1").Code)

	w := f.do(http.MethodPost, "/auth/linknet/logout", "sess-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "logged out", decodeBody(t, w)["status"])
}

func TestSessionCookieIssuedWhenAbsent(t *testing.T) {
	f := newServerFixture(t, "", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/AAPL/profile", nil)
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "fb_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t, "", false)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "finbridge_")
}

func TestShutdownStopsWatcher(t *testing.T) {
	f := newServerFixture(t, "", false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, f.server.Shutdown(ctx))
}
