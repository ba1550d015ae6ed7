// Package main provides the doibib CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/joho/godotenv"
	"github.com/matsen/doibib/internal/config"
	"github.com/matsen/doibib/internal/crossref"
	"github.com/matsen/doibib/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// logLevel is the minimum level written to stderr
var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "doibib",
	Short: "Convert DOIs to BibTeX using CrossRef",
	Long: `doibib looks up DOIs in the CrossRef registry and writes BibTeX entries.

DOIs can be given as arguments, read from a file (one per line), or
extracted from PDFs. Entries are keyed <prefix>001, <prefix>002, ... by
input position. Progress and skipped DOIs are logged to stderr.

Commands other than convert output JSON by default for agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, error)")
	rootCmd.Version = Version
}

// mustLogger builds the stderr logger for --log-level, exits on error.
func mustLogger() logr.Logger {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return logging.New(os.Stderr, level)
}

// mustResolveSettings merges the global config, environment and flags,
// exits on error.
func mustResolveSettings(o config.Overrides) config.Settings {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	s, err := config.Resolve(cfg, o)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return s
}

// newCrossrefClient creates a CrossRef client for the resolved settings.
func newCrossrefClient(s config.Settings, log logr.Logger) *crossref.Client {
	return crossref.NewClient(
		crossref.WithBaseURL(s.BaseURL),
		crossref.WithMailto(s.Mailto),
		crossref.WithRateLimit(s.RateLimit),
		crossref.WithProduct(productToken()),
		crossref.WithLogger(log.WithName("crossref")),
	)
}

// productToken is the User-Agent product for this build, e.g. doibib/1.2.0.
func productToken() string {
	return "doibib/" + Version
}
