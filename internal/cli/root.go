// Package cli contains the finbridge command tree.
package cli

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// GlobalFlags contains global flags available for all commands
type GlobalFlags struct {
	Config  string
	Verbose bool
	JSON    bool
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "finbridge",
	Short: "FinBridge - resilient financial data provider gateway",
	Long: `FinBridge fronts several financial data providers behind one
normalized API: regulatory filings, quotes, fundamentals, news and
company data. Providers that are down, rate limited or unconfigured
degrade to clearly-tagged fallback data instead of failing requests.

Use "finbridge [command] --help" for more information about a command.`,
}

var globalFlags GlobalFlags

// InitRoot initializes the root command with global flags
func InitRoot() {
	configPath := os.Getenv("FINBRIDGE_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	RootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", configPath, "Path to configuration file")
	RootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose output")
	RootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format")

	RootCmd.AddCommand(versionCmd)
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() GlobalFlags {
	return globalFlags
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of FinBridge",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func printVersion() {
	info := GetVersionInfo()
	println("FinBridge Version:", info.Version)
	println("Go Version:", info.GoVersion)
	println("OS/Arch:", info.OS+"/"+info.Arch)
}

// VersionInfo contains version information
type VersionInfo struct {
	Version   string
	GoVersion string
	OS        string
	Arch      string
}

// GetVersionInfo returns version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
