package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginValues(t *testing.T) {
	assert.Equal(t, Origin("live"), OriginLive)
	assert.Equal(t, Origin("mock"), OriginMock)
}

func TestQuoteSerialization(t *testing.T) {
	quote := Quote{
		Ticker:        "AAPL",
		Price:         210.5,
		PreviousClose: 208.0,
		TradingDay:    "2026-08-27",
		Origin:        OriginLive,
	}

	data, err := json.Marshal(quote)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "AAPL", fields["ticker"])
	assert.Equal(t, 210.5, fields["price"])
	assert.Equal(t, 208.0, fields["previous_close"])
	assert.Equal(t, "2026-08-27", fields["trading_day"])
	assert.Equal(t, "live", fields["origin"])

	// absent numeric fields serialize as their zero defaults
	assert.Equal(t, 0.0, fields["open"])
	assert.Equal(t, 0.0, fields["volume"])
}

func TestCompanySummaryOmitsEmptyExternalID(t *testing.T) {
	data, err := json.Marshal(CompanySummary{Ticker: "AAPL", Origin: OriginMock})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "external_id")
	assert.Equal(t, "mock", fields["origin"])
}

func TestFilingFields(t *testing.T) {
	filing := Filing{
		Ticker:          "AAPL",
		CIK:             "0000320193",
		AccessionNumber: "0000320193-26-000005",
		FormType:        "10-K",
		URL:             "https://www.sec.gov/Archives/edgar/data/320193/000032019326000005/aapl-10k.htm",
		Origin:          OriginLive,
	}

	data, err := json.Marshal(filing)
	require.NoError(t, err)

	var parsed Filing
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, filing, parsed)
}
