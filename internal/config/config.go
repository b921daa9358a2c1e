package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Version   string          `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Providers ProvidersConfig `yaml:"providers"`
	Mapping   MappingConfig   `yaml:"mapping"`
	Audit     AuditConfig     `yaml:"audit"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// HTTPConfig contains the outbound request executor defaults applied to
// every provider unless the provider overrides them.
type HTTPConfig struct {
	// Timeout is the per-attempt HTTP timeout. Default: 15s.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the maximum number of attempts for retryable failures.
	// Default: 3.
	MaxRetries int `yaml:"max_retries"`
	// BackoffFactor is the base delay multiplied by 2^(attempt-1).
	// Default: 500ms.
	BackoffFactor time.Duration `yaml:"backoff_factor"`
}

// ProvidersConfig groups the per-provider settings.
type ProvidersConfig struct {
	Edgar      EdgarConfig      `yaml:"edgar"`
	LinkNet    LinkNetConfig    `yaml:"linknet"`
	MarketData MarketDataConfig `yaml:"marketdata"`
	NewsWire   NewsWireConfig   `yaml:"newswire"`
}

// EdgarConfig configures the SEC EDGAR filings provider.
type EdgarConfig struct {
	BaseURL string `yaml:"base_url"`
	// UserAgent is mandatory under the SEC fair-access policy.
	UserAgent string `yaml:"user_agent"`
	// FairAccessDelay is the unconditional minimum pause before each
	// request, required by the provider's usage policy. Default: 1s.
	FairAccessDelay time.Duration `yaml:"fair_access_delay"`
}

// LinkNetConfig configures the professional-network provider.
// Missing client credentials route the adapter to fallback mode.
type LinkNetConfig struct {
	BaseURL         string `yaml:"base_url"`
	AuthURL         string `yaml:"auth_url"`
	TokenURL        string `yaml:"token_url"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	RedirectURI     string `yaml:"redirect_uri"`
	APIVersion      string `yaml:"api_version"`
	ProtocolVersion string `yaml:"protocol_version"`
}

// MarketDataConfig configures the market-data provider.
// A missing API key routes the adapter to fallback mode.
type MarketDataConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// NewsWireConfig configures the news provider.
// A missing API key routes the adapter to fallback mode.
type NewsWireConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// MappingConfig configures the ticker identifier cache.
type MappingConfig struct {
	// SnapshotPath is the JSON snapshot file location.
	SnapshotPath string `yaml:"snapshot_path"`
	// SourceURL is the upstream full-listing endpoint.
	SourceURL string `yaml:"source_url"`
	// RefreshInterval is the snapshot age that triggers a refresh.
	// Default: 168h (7 days).
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// SearchLimit caps Search results. Default: 10.
	SearchLimit int `yaml:"search_limit"`
}

// AuditConfig configures the security audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// ApplyDefaults fills unset fields with documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8412
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "json"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	if c.HTTP.MaxRetries == 0 {
		c.HTTP.MaxRetries = 3
	}
	if c.HTTP.BackoffFactor == 0 {
		c.HTTP.BackoffFactor = 500 * time.Millisecond
	}
	if c.Providers.Edgar.BaseURL == "" {
		c.Providers.Edgar.BaseURL = "https://data.sec.gov"
	}
	if c.Providers.Edgar.FairAccessDelay == 0 {
		c.Providers.Edgar.FairAccessDelay = time.Second
	}
	if c.Providers.LinkNet.APIVersion == "" {
		c.Providers.LinkNet.APIVersion = "202405"
	}
	if c.Providers.LinkNet.ProtocolVersion == "" {
		c.Providers.LinkNet.ProtocolVersion = "2.0.0"
	}
	if c.Mapping.SnapshotPath == "" {
		c.Mapping.SnapshotPath = "./data/ticker_mapping.json"
	}
	if c.Mapping.SourceURL == "" {
		c.Mapping.SourceURL = "https://www.sec.gov/files/company_tickers.json"
	}
	if c.Mapping.RefreshInterval == 0 {
		c.Mapping.RefreshInterval = 7 * 24 * time.Hour
	}
	if c.Mapping.SearchLimit == 0 {
		c.Mapping.SearchLimit = 10
	}
	if c.Audit.DBPath == "" {
		c.Audit.DBPath = "./data/audit.db"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0, got %d", c.HTTP.MaxRetries)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must be >= 0, got %s", c.HTTP.Timeout)
	}
	if c.Providers.Edgar.FairAccessDelay < 0 {
		return fmt.Errorf("providers.edgar.fair_access_delay must be >= 0, got %s", c.Providers.Edgar.FairAccessDelay)
	}
	if c.Mapping.RefreshInterval < 0 {
		return fmt.Errorf("mapping.refresh_interval must be >= 0, got %s", c.Mapping.RefreshInterval)
	}
	if c.Mapping.SearchLimit < 0 {
		return fmt.Errorf("mapping.search_limit must be >= 0, got %d", c.Mapping.SearchLimit)
	}
	// OAuth client config is all-or-nothing: a partial pair is a likely
	// misconfiguration, while a fully absent pair selects fallback mode.
	ln := c.Providers.LinkNet
	if (ln.ClientID == "") != (ln.ClientSecret == "") {
		return fmt.Errorf("providers.linknet: client_id and client_secret must be set together")
	}
	if ln.ClientID != "" && ln.RedirectURI == "" {
		return fmt.Errorf("providers.linknet: redirect_uri required when oauth client is configured")
	}
	return nil
}
