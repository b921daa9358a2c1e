package models

// Origin reports whether a record was produced from a live provider call
// or by the fallback responder.
type Origin string

const (
	OriginLive Origin = "live"
	OriginMock Origin = "mock"
)

// CompanySummary is a single symbol search result.
// Absent source fields default to "".
type CompanySummary struct {
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id,omitempty"`
	Exchange   string `json:"exchange"`
	Region     string `json:"region"`
	Currency   string `json:"currency"`
	Origin     Origin `json:"origin"`
}

// Profile is the normalized company profile.
type Profile struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	Exchange    string  `json:"exchange"`
	Country     string  `json:"country"`
	Website     string  `json:"website"`
	Employees   int64   `json:"employees"`
	MarketCap   float64 `json:"market_cap"`
	Origin      Origin  `json:"origin"`
}

// Quote is a normalized point-in-time quote. Numeric fields default to 0.
type Quote struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreviousClose float64 `json:"previous_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	TradingDay    string  `json:"trading_day"`
	Origin        Origin  `json:"origin"`
}

// FinancialStatement is one reporting period of a normalized statement.
type FinancialStatement struct {
	Ticker          string  `json:"ticker"`
	Period          string  `json:"period"` // "annual" or "quarterly"
	FiscalDateEnd   string  `json:"fiscal_date_end"`
	Currency        string  `json:"currency"`
	Revenue         float64 `json:"revenue"`
	GrossProfit     float64 `json:"gross_profit"`
	OperatingIncome float64 `json:"operating_income"`
	NetIncome       float64 `json:"net_income"`
	TotalAssets     float64 `json:"total_assets"`
	TotalLiability  float64 `json:"total_liabilities"`
	Origin          Origin  `json:"origin"`
}

// NewsItem is a normalized news article reference.
type NewsItem struct {
	Ticker      string `json:"ticker"`
	Headline    string `json:"headline"`
	Summary     string `json:"summary"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Origin      Origin `json:"origin"`
}

// Executive is a normalized company officer entry.
type Executive struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Since  string `json:"since"`
	Origin Origin `json:"origin"`
}

// PricePoint is one bar of a normalized historical price series.
type PricePoint struct {
	Ticker    string  `json:"ticker"`
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	Origin    Origin  `json:"origin"`
}

// Filing is a normalized regulatory filing reference.
type Filing struct {
	Ticker          string `json:"ticker"`
	CIK             string `json:"cik"`
	AccessionNumber string `json:"accession_number"`
	FormType        string `json:"form_type"`
	FilingDate      string `json:"filing_date"`
	ReportDate      string `json:"report_date"`
	PrimaryDocument string `json:"primary_document"`
	URL             string `json:"url"`
	Origin          Origin `json:"origin"`
}
