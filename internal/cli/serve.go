package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbridge/finbridge/internal/api"
	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/mapping"
	"github.com/finbridge/finbridge/internal/metrics"
	"github.com/finbridge/finbridge/internal/models"
	"github.com/finbridge/finbridge/internal/oauth"
	"github.com/finbridge/finbridge/internal/providers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the FinBridge gateway server",
	Long: `Start the HTTP server that fronts the configured data providers.

Example:
  finbridge serve --config config.yaml

The server listens on the address configured in the config file.`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", envDuration("SHUTDOWN_TIMEOUT", 30*time.Second), "Shutdown timeout")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting FinBridge server...")
		log.Printf("Config path: %s", globalFlags.Config)
	}

	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}

	logger := logging.NewLogger()
	m := metrics.NewMetrics("finbridge")

	var audit *logging.AuditStore
	if cfg.Audit.Enabled {
		audit, err = logging.NewAuditStore(cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer func() {
			if err := audit.Close(); err != nil {
				log.Printf("Error closing audit store: %v", err)
			}
		}()
		if globalFlags.Verbose {
			log.Printf("Audit trail enabled at: %s", cfg.Audit.DBPath)
		}
	}

	gateway, linknet, cache := buildGateway(cfg, logger, m, audit)

	if err := cache.Load(); err != nil {
		return fmt.Errorf("failed to load identifier mapping: %w", err)
	}
	if err := cache.StartWatcher(); err != nil {
		logger.Warn("mapping snapshot watcher unavailable", "error", err.Error())
	}

	server := api.NewServer(cfg.Server, gateway, linknet, cache, m, logger)

	setupGracefulShutdown(server, serveFlags.Timeout)

	log.Printf("Starting FinBridge HTTP server on %s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	if err := server.Run(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildGateway wires the per-provider executors, the OAuth session manager
// and the identifier mapping into the dispatch gateway.
func buildGateway(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics, audit *logging.AuditStore) (*providers.Gateway, *providers.LinkNet, *mapping.Cache) {
	edgarHeader := http.Header{}
	if cfg.Providers.Edgar.UserAgent != "" {
		edgarHeader.Set("User-Agent", cfg.Providers.Edgar.UserAgent)
	}
	edgarExec := executor.New(executor.Options{
		Provider:        "edgar",
		BaseURL:         cfg.Providers.Edgar.BaseURL,
		Timeout:         cfg.HTTP.Timeout,
		MaxRetries:      cfg.HTTP.MaxRetries,
		BackoffFactor:   cfg.HTTP.BackoffFactor,
		FairAccessDelay: cfg.Providers.Edgar.FairAccessDelay,
		Header:          edgarHeader,
		Logger:          logger,
		Metrics:         m,
	})

	// The mapping listing lives on the same authority as the filings
	// archive, so the refresh shares the archive's executor and with it the
	// fair-access pacing.
	cache := mapping.New(cfg.Mapping, edgarExec, logger, mapping.WithMetrics(m))

	linknetExec := executor.New(executor.Options{
		Provider:      "linknet",
		BaseURL:       cfg.Providers.LinkNet.BaseURL,
		Timeout:       cfg.HTTP.Timeout,
		MaxRetries:    cfg.HTTP.MaxRetries,
		BackoffFactor: cfg.HTTP.BackoffFactor,
		Logger:        logger,
		Metrics:       m,
	})
	manager := oauth.NewManager(oauth.Config{
		Provider:        "linknet",
		AuthURL:         cfg.Providers.LinkNet.AuthURL,
		TokenURL:        cfg.Providers.LinkNet.TokenURL,
		ClientID:        cfg.Providers.LinkNet.ClientID,
		ClientSecret:    cfg.Providers.LinkNet.ClientSecret,
		RedirectURI:     cfg.Providers.LinkNet.RedirectURI,
		APIVersion:      cfg.Providers.LinkNet.APIVersion,
		ProtocolVersion: cfg.Providers.LinkNet.ProtocolVersion,
	}, linknetExec, logger, oauth.WithAudit(audit), oauth.WithMetrics(m))

	marketExec := executor.New(executor.Options{
		Provider:      "marketdata",
		BaseURL:       cfg.Providers.MarketData.BaseURL,
		Timeout:       cfg.HTTP.Timeout,
		MaxRetries:    cfg.HTTP.MaxRetries,
		BackoffFactor: cfg.HTTP.BackoffFactor,
		Logger:        logger,
		Metrics:       m,
	})
	newsExec := executor.New(executor.Options{
		Provider:      "newswire",
		BaseURL:       cfg.Providers.NewsWire.BaseURL,
		Timeout:       cfg.HTTP.Timeout,
		MaxRetries:    cfg.HTTP.MaxRetries,
		BackoffFactor: cfg.HTTP.BackoffFactor,
		Logger:        logger,
		Metrics:       m,
	})

	edgar := providers.NewEdgar(cfg.Providers.Edgar, edgarExec, cache, logger, m)
	linknet := providers.NewLinkNet(manager, logger, m)
	market := providers.NewMarketData(cfg.Providers.MarketData, marketExec, logger, m)
	news := providers.NewNewsWire(cfg.Providers.NewsWire, newsExec, logger, m)

	for _, cred := range providerCredentials(cfg) {
		mode := "fallback"
		if cred.HasAPIKey() || cred.HasOAuthClient() || cred.UserAgent != "" {
			mode = "live"
		}
		logger.Info("provider configured", "provider", cred.Provider, "mode", mode)
	}

	return providers.NewGateway(edgar, linknet, market, news, logger), linknet, cache
}

// providerCredentials collects the static auth material per provider, which
// decides each adapter's live-vs-fallback mode.
func providerCredentials(cfg *config.Config) []models.ProviderCredentials {
	return []models.ProviderCredentials{
		{
			Provider:  "edgar",
			BaseURL:   cfg.Providers.Edgar.BaseURL,
			UserAgent: cfg.Providers.Edgar.UserAgent,
		},
		{
			Provider:     "linknet",
			BaseURL:      cfg.Providers.LinkNet.BaseURL,
			ClientID:     cfg.Providers.LinkNet.ClientID,
			ClientSecret: cfg.Providers.LinkNet.ClientSecret,
			RedirectURI:  cfg.Providers.LinkNet.RedirectURI,
		},
		{
			Provider: "marketdata",
			BaseURL:  cfg.Providers.MarketData.BaseURL,
			APIKey:   cfg.Providers.MarketData.APIKey,
		},
		{
			Provider: "newswire",
			BaseURL:  cfg.Providers.NewsWire.BaseURL,
			APIKey:   cfg.Providers.NewsWire.APIKey,
		},
	}
}

// setupGracefulShutdown handles shutdown on SIGINT/SIGTERM.
func setupGracefulShutdown(server *api.Server, timeout time.Duration) {
	sigChan := api.SetupSignalHandler()

	go func() {
		sig := api.WaitForSignal(sigChan)
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		log.Println("Shutting down API server...")
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}

		log.Println("Graceful shutdown completed")
		os.Exit(0)
	}()
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return fallback
}
