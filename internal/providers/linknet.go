package providers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/finbridge/finbridge/internal/errors"
	"github.com/finbridge/finbridge/internal/fallback"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/metrics"
	"github.com/finbridge/finbridge/internal/models"
	"github.com/finbridge/finbridge/internal/oauth"
)

// LinkNet serves organization profiles and officer data from the
// professional-network API. Every resource call is made on behalf of a user
// session holding a delegated OAuth token; sessions without a valid token
// get fallback data, they are never failed.
type LinkNet struct {
	manager   *oauth.Manager
	responder *fallback.Responder
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewLinkNet creates the professional-network adapter around its OAuth
// session manager.
func NewLinkNet(manager *oauth.Manager, logger *logging.Logger, m *metrics.Metrics) *LinkNet {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &LinkNet{
		manager:   manager,
		responder: fallback.New("linknet"),
		logger:    logger,
		metrics:   m,
	}
}

func (p *LinkNet) Name() string { return "linknet" }

func (p *LinkNet) Capabilities() []Capability {
	return []Capability{CapProfile, CapExecutives}
}

func (p *LinkNet) Live() bool { return p.manager.Configured() }

// Auth exposes the session manager so the API layer can drive the
// authorization flow.
func (p *LinkNet) Auth() *oauth.Manager { return p.manager }

// degradeReason maps a live-path failure to the fallback reason token.
func degradeReason(err error) string {
	var auth *errors.ErrAuth
	if stderrors.As(err, &auth) {
		return "unauthenticated"
	}
	return "unreachable"
}

// GetCompanyProfile fetches the organization page for the ticker on behalf
// of the session.
func (p *LinkNet) GetCompanyProfile(ctx context.Context, sessionID, ticker string) (*models.Profile, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if !p.Live() {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapProfile, "unconfigured", nil)
		return p.responder.CompanyProfile(ticker), nil
	}

	q := url.Values{}
	q.Set("ticker", ticker)

	resp, err := p.manager.Request(ctx, sessionID, http.MethodGet, "/rest/organizations", q, nil)
	if err != nil {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapProfile, degradeReason(err), err)
		return p.responder.CompanyProfile(ticker), nil
	}

	var payload struct {
		Name         string `json:"localizedName"`
		Description  string `json:"localizedDescription"`
		Industry     string `json:"localizedIndustry"`
		Website      string `json:"localizedWebsite"`
		StaffCount   int64  `json:"staffCount"`
		Headquarters struct {
			Country string `json:"country"`
		} `json:"headquarters"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapProfile, "bad_payload", err)
		return p.responder.CompanyProfile(ticker), nil
	}

	return &models.Profile{
		Ticker:      ticker,
		Name:        payload.Name,
		Description: payload.Description,
		Industry:    payload.Industry,
		Country:     payload.Headquarters.Country,
		Website:     payload.Website,
		Employees:   payload.StaffCount,
		Origin:      models.OriginLive,
	}, nil
}

// GetExecutives fetches the officer roster for the ticker on behalf of the
// session.
func (p *LinkNet) GetExecutives(ctx context.Context, sessionID, ticker string) ([]models.Executive, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if !p.Live() {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapExecutives, "unconfigured", nil)
		return p.responder.Executives(ticker), nil
	}

	q := url.Values{}
	q.Set("ticker", ticker)

	resp, err := p.manager.Request(ctx, sessionID, http.MethodGet, "/rest/organizationOfficers", q, nil)
	if err != nil {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapExecutives, degradeReason(err), err)
		return p.responder.Executives(ticker), nil
	}

	var payload struct {
		Elements []struct {
			Name  string `json:"localizedName"`
			Title string `json:"localizedTitle"`
			Since string `json:"startDate"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		degrade(ctx, p.logger, p.metrics, p.Name(), CapExecutives, "bad_payload", err)
		return p.responder.Executives(ticker), nil
	}

	executives := make([]models.Executive, 0, len(payload.Elements))
	for _, el := range payload.Elements {
		executives = append(executives, models.Executive{
			Ticker: ticker,
			Name:   el.Name,
			Title:  el.Title,
			Since:  el.Since,
			Origin: models.OriginLive,
		})
	}
	return executives, nil
}
