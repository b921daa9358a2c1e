package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/finbridge/finbridge/internal/config"
	"github.com/finbridge/finbridge/internal/executor"
	"github.com/finbridge/finbridge/internal/logging"
	"github.com/finbridge/finbridge/internal/mapping"
)

// resolveCmd looks up the external identifier for a ticker from the local
// snapshot, without starting the server.
var resolveCmd = &cobra.Command{
	Use:   "resolve TICKER",
	Short: "Resolve a ticker to its external identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openMapping()
		if err != nil {
			return err
		}

		id, err := cache.Resolve(args[0])
		if err != nil {
			return err
		}

		if globalFlags.JSON {
			return json.NewEncoder(os.Stdout).Encode(map[string]string{
				"ticker":      strings.ToUpper(args[0]),
				"external_id": id,
			})
		}
		fmt.Println(id)
		return nil
	},
}

// searchCmd searches the local snapshot by ticker or company name.
var searchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Search companies in the identifier snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openMapping()
		if err != nil {
			return err
		}

		matches := cache.Search(args[0])
		if globalFlags.JSON {
			return json.NewEncoder(os.Stdout).Encode(matches)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TICKER\tEXTERNAL ID\tNAME")
		for _, match := range matches {
			fmt.Fprintf(w, "%s\t%s\t%s\n", match.Ticker, match.ExternalID, match.Name)
		}
		return w.Flush()
	},
}

// refreshCmd forces an identifier-mapping refresh from the upstream listing.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the identifier snapshot from the upstream listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openMapping()
		if err != nil {
			return err
		}

		if err := cache.Refresh(context.Background()); err != nil {
			return err
		}

		fmt.Printf("refreshed %d entries\n", cache.Len())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(resolveCmd)
	RootCmd.AddCommand(searchCmd)
	RootCmd.AddCommand(refreshCmd)
}

// openMapping loads the identifier cache the same way the server does,
// including the fair-access pacing on the refresh path.
func openMapping() (*mapping.Cache, error) {
	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger()

	header := http.Header{}
	if cfg.Providers.Edgar.UserAgent != "" {
		header.Set("User-Agent", cfg.Providers.Edgar.UserAgent)
	}
	exec := executor.New(executor.Options{
		Provider:        "edgar",
		BaseURL:         cfg.Providers.Edgar.BaseURL,
		Timeout:         cfg.HTTP.Timeout,
		MaxRetries:      cfg.HTTP.MaxRetries,
		BackoffFactor:   cfg.HTTP.BackoffFactor,
		FairAccessDelay: cfg.Providers.Edgar.FairAccessDelay,
		Header:          header,
		Logger:          logger,
	})

	cache := mapping.New(cfg.Mapping, exec, logger)
	if err := cache.Load(); err != nil {
		return nil, err
	}
	return cache, nil
}
