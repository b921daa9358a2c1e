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

// NewsWire serves company news from the news REST API. Auth is a static
// API key sent as a request header.
type NewsWire struct {
	exec      *executor.Executor
	auth      executor.AuthProvider
	responder *fallback.Responder
	logger    *logging.Logger
	metrics   *metrics.Metrics
	live      bool
}

// NewNewsWire creates the news adapter.
func NewNewsWire(cfg config.NewsWireConfig, exec *executor.Executor, logger *logging.Logger, m *metrics.Metrics) *NewsWire {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NewsWire{
		exec:      exec,
		auth:      executor.APIKeyHeader{Provider: "newswire", Header: "X-Api-Key", Key: cfg.APIKey},
		responder: fallback.New("newswire"),
		logger:    logger,
		metrics:   m,
		live:      cfg.APIKey != "",
	}
}

func (p *NewsWire) Name() string { return "newswire" }

func (p *NewsWire) Capabilities() []Capability {
	return []Capability{CapNews}
}

func (p *NewsWire) Live() bool { return p.live }

// defaultNewsLimit caps an article listing when the caller does not ask for
// a specific count.
const defaultNewsLimit = 10

// GetCompanyNews fetches up to limit recent articles mentioning the ticker.
func (p *NewsWire) GetCompanyNews(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if limit <= 0 {
		limit = defaultNewsLimit
	}

	if !p.live {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapNews, "unconfigured", nil)
		return p.responder.CompanyNews(ticker, limit), nil
	}

	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("limit", strconv.Itoa(limit))

	resp, err := p.exec.Execute(ctx, executor.Request{
		Method:   http.MethodGet,
		Endpoint: "/v2/news",
		Query:    q,
	}, p.auth)
	if err != nil {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapNews, "unreachable", err)
		return p.responder.CompanyNews(ticker, limit), nil
	}

	var payload struct {
		Articles []struct {
			Headline    string `json:"headline"`
			Summary     string `json:"summary"`
			Source      string `json:"source"`
			URL         string `json:"url"`
			PublishedAt string `json:"published_at"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapNews, "bad_payload", err)
		return p.responder.CompanyNews(ticker, limit), nil
	}

	items := make([]models.NewsItem, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		if len(items) >= limit {
			break
		}
		items = append(items, models.NewsItem{
			Ticker:      ticker,
			Headline:    article.Headline,
			Summary:     article.Summary,
			Source:      article.Source,
			URL:         article.URL,
			PublishedAt: article.PublishedAt,
			Origin:      models.OriginLive,
		})
	}
	return items, nil
}
