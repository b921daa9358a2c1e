// Package providers contains the per-provider adapters and the gateway
// that dispatches capability calls across them. Each adapter normalizes its
// provider's wire format into the shared record types and degrades to the
// fallback responder instead of erroring when the provider is unreachable
// or unconfigured.
package providers

import (
	"context"

	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/metrics"
)

// Capability names one operation of the provider contract.
type Capability string

const (
	CapSearch     Capability = "search_companies"
	CapProfile    Capability = "company_profile"
	CapQuote      Capability = "quote"
	CapFinancials Capability = "financials"
	CapNews       Capability = "company_news"
	CapExecutives Capability = "executives"
	CapHistorical Capability = "historical_prices"
	CapFilings    Capability = "filings"
)

// Client is the minimal surface every adapter exposes. The concrete
// capability methods live on the adapters themselves; the gateway wires
// them by capability.
type Client interface {
	Name() string
	Capabilities() []Capability
	// Live reports whether the adapter has working credentials and will
	// attempt real provider calls. A non-live adapter serves fallback data
	// for every capability.
	Live() bool
}

// degrade records one live-path failure that was absorbed by the fallback
// responder. reason is a short stable token ("unreachable", "unconfigured",
// "unauthenticated", "bad_payload", "not_found").
func degrade(ctx context.Context, logger *logging.Logger, m *metrics.Metrics, provider string, cap Capability, reason string, err error) {
	m.RecordFallback(provider, string(cap), reason)
	fields := []interface{}{
		"provider", provider,
		"capability", string(cap),
		"reason", reason,
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	logger.WarnWithContext(ctx, "serving fallback data", fields...)
}
