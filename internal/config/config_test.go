package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8412, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.HTTP.BackoffFactor)
	assert.Equal(t, "https://data.sec.gov", cfg.Providers.Edgar.BaseURL)
	assert.Equal(t, time.Second, cfg.Providers.Edgar.FairAccessDelay)
	assert.Equal(t, "https://www.sec.gov/files/company_tickers.json", cfg.Mapping.SourceURL)
	assert.Equal(t, 7*24*time.Hour, cfg.Mapping.RefreshInterval)
	assert.Equal(t, 10, cfg.Mapping.SearchLimit)
}

func TestParse_FullConfig(t *testing.T) {
	data := []byte(`
version: "1"
server:
  host: 127.0.0.1
  http_port: 9000
http:
  timeout: 5s
  max_retries: 2
  backoff_factor: 100ms
providers:
  edgar:
    user_agent: "FinBridge test@example.com"
    fair_access_delay: 2s
  linknet:
    client_id: client-123
    client_secret: secret-456
    redirect_uri: http://localhost:9000/auth/linknet/callback
  marketdata:
    base_url: https://market.example.com
    api_key: md-key
  newswire:
    base_url: https://news.example.com
    api_key: nw-key
mapping:
  snapshot_path: /tmp/tickers.json
  search_limit: 5
audit:
  enabled: true
  db_path: /tmp/audit.db
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 2, cfg.HTTP.MaxRetries)
	assert.Equal(t, "FinBridge test@example.com", cfg.Providers.Edgar.UserAgent)
	assert.Equal(t, 2*time.Second, cfg.Providers.Edgar.FairAccessDelay)
	assert.Equal(t, "client-123", cfg.Providers.LinkNet.ClientID)
	assert.Equal(t, "md-key", cfg.Providers.MarketData.APIKey)
	assert.Equal(t, 5, cfg.Mapping.SearchLimit)
	assert.True(t, cfg.Audit.Enabled)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: ["))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("partial oauth pair is rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Providers.LinkNet.ClientID = "client-only"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client_id and client_secret")
	})

	t.Run("oauth client requires redirect uri", func(t *testing.T) {
		cfg := Default()
		cfg.Providers.LinkNet.ClientID = "client"
		cfg.Providers.LinkNet.ClientSecret = "secret"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redirect_uri")
	})

	t.Run("absent oauth client is allowed", func(t *testing.T) {
		cfg := Default()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("negative retries rejected", func(t *testing.T) {
		cfg := Default()
		cfg.HTTP.MaxRetries = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("port out of range rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Server.HTTPPort = 70000
		assert.Error(t, cfg.Validate())
	})
}

func TestLoader_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_MD_KEY", "env-key-789")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "providers:\n  marketdata:\n    api_key: ${TEST_MD_KEY}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key-789", cfg.Providers.MarketData.APIKey)
	assert.Same(t, cfg, loader.Get())
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := loader.Load()
	assert.Error(t, err)
}

func TestLoader_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 8001\n"), 0o644))

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, 8001, cfg.Server.HTTPPort)

	var observed *Config
	loader.SetOnChange(func(c *Config) { observed = c })

	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 8002\n"), 0o644))
	cfg, err = loader.Reload()
	require.NoError(t, err)

	assert.Equal(t, 8002, cfg.Server.HTTPPort)
	assert.Same(t, cfg, observed)
}
