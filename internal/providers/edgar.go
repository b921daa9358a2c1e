package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/fallback"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/mapping"
	"github.com/finbridge/finbridge/internal/metrics"
	"github.com/finbridge/finbridge/internal/models"
)

const edgarArchiveBase = "https://www.sec.gov/Archives/edgar/data"

// defaultFilingLimit caps a recent-filings listing when the caller does not
// ask for a specific count.
const defaultFilingLimit = 20

// Edgar serves regulatory filings from the SEC submissions archive. The
// archive is keyed by CIK, so every call goes through the ticker mapping
// first. The executor carries the mandatory User-Agent and the fair-access
// pacing the archive's usage policy requires.
type Edgar struct {
	exec      *executor.Executor
	mapping   *mapping.Cache
	responder *fallback.Responder
	logger    *logging.Logger
	metrics   *metrics.Metrics
	live      bool
}

// NewEdgar creates the filings adapter. The adapter runs live only when a
// User-Agent is configured; the archive rejects anonymous clients.
func NewEdgar(cfg config.EdgarConfig, exec *executor.Executor, cache *mapping.Cache, logger *logging.Logger, m *metrics.Metrics) *Edgar {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Edgar{
		exec:      exec,
		mapping:   cache,
		responder: fallback.New("edgar"),
		logger:    logger,
		metrics:   m,
		live:      cfg.UserAgent != "",
	}
}

// ResolveCIK exposes the mapping lookup for callers that need the raw
// identifier, zero-padded to the archive's ten digits.
func (e *Edgar) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	e.mapping.EnsureFresh(ctx)
	return e.mapping.Resolve(ticker)
}

func (e *Edgar) Name() string { return "edgar" }

func (e *Edgar) Capabilities() []Capability {
	return []Capability{CapSearch, CapFilings}
}

func (e *Edgar) Live() bool { return e.live }

// SearchCompanies resolves the query against the local identifier table.
// The archive has no search endpoint; the full-listing snapshot is the
// search corpus.
func (e *Edgar) SearchCompanies(ctx context.Context, query string) ([]models.CompanySummary, error) {
	e.mapping.EnsureFresh(ctx)

	matches := e.mapping.Search(query)
	results := make([]models.CompanySummary, 0, len(matches))
	for _, match := range matches {
		results = append(results, models.CompanySummary{
			Ticker:     match.Ticker,
			Name:       match.Name,
			ExternalID: match.ExternalID,
			Region:     "US",
			Currency:   "USD",
			Origin:     models.OriginLive,
		})
	}
	return results, nil
}

// submissions payload: the recent filings block is a set of parallel
// arrays, index i across all of them describes one filing.
type submissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// GetFilings returns the company's most recent filings, optionally filtered
// by form type ("10-K", "8-K", ...). An unknown ticker is a caller error
// and surfaces as ErrNotFound; an unreachable archive degrades to fallback.
func (e *Edgar) GetFilings(ctx context.Context, ticker, formType string, limit int) ([]models.Filing, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if limit <= 0 {
		limit = defaultFilingLimit
	}

	e.mapping.EnsureFresh(ctx)
	cik, err := e.mapping.Resolve(ticker)
	if err != nil {
		return nil, err
	}

	if !e.live {
		degrade(ctx, e.logger, e.metrics, e.Name(), CapFilings, "unconfigured", nil)
		return e.responder.Filings(ticker, limit), nil
	}

	resp, err := e.exec.Execute(ctx, executor.Request{
		Method:   http.MethodGet,
		Endpoint: fmt.Sprintf("/submissions/CIK%s.json", cik),
	}, nil)
	if err != nil {
		degrade(ctx, e.logger, e.metrics, e.Name(), CapFilings, "unreachable", err)
		return e.responder.Filings(ticker, limit), nil
	}

	var parsed submissionsResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		degrade(ctx, e.logger, e.metrics, e.Name(), CapFilings, "bad_payload", err)
		return e.responder.Filings(ticker, limit), nil
	}

	recent := parsed.Filings.Recent
	filings := make([]models.Filing, 0, limit)
	for i := range recent.AccessionNumber {
		if formType != "" && !strings.EqualFold(field(recent.Form, i), formType) {
			continue
		}
		filings = append(filings, models.Filing{
			Ticker:          ticker,
			CIK:             cik,
			AccessionNumber: recent.AccessionNumber[i],
			FormType:        field(recent.Form, i),
			FilingDate:      field(recent.FilingDate, i),
			ReportDate:      field(recent.ReportDate, i),
			PrimaryDocument: field(recent.PrimaryDocument, i),
			URL:             documentURL(cik, recent.AccessionNumber[i], field(recent.PrimaryDocument, i)),
			Origin:          models.OriginLive,
		})
		if len(filings) >= limit {
			break
		}
	}
	return filings, nil
}

// field guards against ragged parallel arrays in the archive payload.
func field(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// documentURL builds the browsable archive URL for one filing document.
// The path wants the CIK without leading zeros and the accession number
// without dashes.
func documentURL(cik, accession, primaryDoc string) string {
	if accession == "" || primaryDoc == "" {
		return ""
	}
	shortCIK := strings.TrimLeft(cik, "0")
	if shortCIK == "" {
		shortCIK = "0"
	}
	return fmt.Sprintf("%s/%s/%s/%s", edgarArchiveBase, shortCIK, strings.ReplaceAll(accession, "-", ""), primaryDoc)
}
