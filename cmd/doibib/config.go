package main

import (
	"fmt"

	"github.com/matsen/doibib/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set global configuration values (~/.config/doibib/config.yml).

Usage:
  doibib config                            # Show all config
  doibib config mailto                     # Get specific value
  doibib config mailto you@example.com     # Set value

Keys:
  mailto      Contact email for the CrossRef polite pool
  delay       Pause between requests (seconds or duration, e.g. 1.5 or 500ms)
  key-prefix  Citation key prefix (default ref)
  base-url    CrossRef works endpoint
  rate-limit  Maximum requests per second (0 for the default)

Environment variables DOIBIB_MAILTO, CROSSREF_MAILTO, DOIBIB_DELAY and
DOIBIB_BASE_URL override the file; command flags override both.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	// No args: show all config
	if len(args) == 0 {
		values := make(map[string]string, len(config.Keys))
		for _, key := range config.Keys {
			values[key], _ = cfg.GetValue(key)
		}
		if humanOutput {
			fmt.Printf("# %s\n", config.GlobalConfigPath())
			for _, key := range config.Keys {
				fmt.Printf("%-11s %s\n", key+":", values[key])
			}
		} else {
			outputJSON(ConfigResponse{Path: config.GlobalConfigPath(), Values: values})
		}
		return nil
	}

	key := args[0]
	normalizedKey := config.NormalizeKey(key)

	// One arg: get specific value
	if len(args) == 1 {
		value, err := cfg.GetValue(key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{normalizedKey: value})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	if err := cfg.SetValue(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if err := config.SaveGlobalConfig(cfg); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", normalizedKey, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    normalizedKey,
			Value:  value,
		})
	}

	return nil
}
