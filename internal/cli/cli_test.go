package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/finbridge/internal/config"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, RootCmd)
	assert.Equal(t, "finbridge", RootCmd.Use)
	assert.Contains(t, RootCmd.Long, "FinBridge")
}

func TestVersionCommand(t *testing.T) {
	assert.NotNil(t, versionCmd)
	assert.Equal(t, "version", versionCmd.Use)
}

func TestInitRootRegistersCommands(t *testing.T) {
	t.Setenv("FINBRIDGE_CONFIG_PATH", "")
	InitRoot()

	flags := GetGlobalFlags()
	assert.Equal(t, "config.yaml", flags.Config)
	assert.False(t, flags.Verbose)
	assert.False(t, flags.JSON)

	names := make([]string, 0)
	for _, cmd := range RootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "resolve")
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "refresh")
	assert.Contains(t, names, "version")
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
}

func TestProviderCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Edgar.UserAgent = "FinBridge test@example.com"
	cfg.Providers.MarketData.APIKey = "key-1"

	creds := providerCredentials(cfg)
	require.Len(t, creds, 4)

	byProvider := make(map[string]int)
	for i, cred := range creds {
		byProvider[cred.Provider] = i
	}
	require.Contains(t, byProvider, "edgar")
	require.Contains(t, byProvider, "linknet")
	require.Contains(t, byProvider, "marketdata")
	require.Contains(t, byProvider, "newswire")

	assert.Equal(t, "FinBridge test@example.com", creds[byProvider["edgar"]].UserAgent)
	assert.True(t, creds[byProvider["marketdata"]].HasAPIKey())
	assert.False(t, creds[byProvider["linknet"]].HasOAuthClient())
	assert.False(t, creds[byProvider["newswire"]].HasAPIKey())
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_SHUTDOWN_TIMEOUT", "45s")
	assert.Equal(t, 45*time.Second, envDuration("TEST_SHUTDOWN_TIMEOUT", 30*time.Second))

	t.Setenv("TEST_SHUTDOWN_TIMEOUT", "not-a-duration")
	assert.Equal(t, 30*time.Second, envDuration("TEST_SHUTDOWN_TIMEOUT", 30*time.Second))

	assert.Equal(t, 30*time.Second, envDuration("TEST_SHUTDOWN_TIMEOUT_UNSET", 30*time.Second))
}
