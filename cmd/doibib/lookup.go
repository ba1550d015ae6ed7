package main

import (
	"context"
	"fmt"

	"github.com/matsen/doibib/internal/clipboard"
	"github.com/matsen/doibib/internal/config"
	"github.com/matsen/doibib/internal/convert"
	"github.com/matsen/doibib/internal/crossref"
	"github.com/matsen/doibib/internal/export"
	"github.com/spf13/cobra"
)

var (
	lookupKey    string
	lookupBibTeX bool
	lookupRaw    bool
	lookupMailto string
	lookupCopy   bool
)

func init() {
	lookupCmd.Flags().StringVar(&lookupKey, "key", "", "Citation key (default <prefix>001)")
	lookupCmd.Flags().BoolVar(&lookupBibTeX, "bibtex", false, "Print the BibTeX entry")
	lookupCmd.Flags().BoolVar(&lookupRaw, "raw", false, "Print the raw CrossRef record")
	lookupCmd.Flags().StringVar(&lookupMailto, "mailto", "", "Contact email sent in the User-Agent (CrossRef polite pool)")
	lookupCmd.Flags().BoolVar(&lookupCopy, "copy", false, "Also copy the BibTeX entry to the clipboard")
	lookupCmd.MarkFlagsMutuallyExclusive("bibtex", "raw")
	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <doi>",
	Short: "Look up a single DOI",
	Long: `Look up a single DOI in CrossRef and show the resulting citation record.

By default the mapped entry is printed as JSON (id, entry_type, fields).
Use --bibtex for the BibTeX text or --raw for the CrossRef record itself.

Examples:
  doibib lookup 10.1145/3411764.3445648
  doibib lookup https://doi.org/10.1145/3411764.3445648 --bibtex --key chi2021
  doibib lookup 10.1145/3411764.3445648 --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	doi := args[0]

	var o config.Overrides
	if cmd.Flags().Changed("mailto") {
		o.Mailto = &lookupMailto
	}
	log := mustLogger()
	settings := mustResolveSettings(o)

	client := newCrossrefClient(settings, log)
	ctx := context.Background()
	rec, err := client.GetWork(ctx, doi)
	if err != nil {
		if crossref.IsNotFound(err) {
			exitWithError(ExitDataError, "DOI not found: %s", doi)
		}
		if crossref.IsRateLimited(err) {
			exitWithError(ExitError, "CrossRef rate limit exceeded, try again later (set mailto to use the polite pool)")
		}
		exitWithError(ExitError, "fetching %s: %v", doi, err)
	}
	if rec.Empty() {
		exitWithError(ExitDataError, "CrossRef returned an empty record for %s", doi)
	}

	if lookupRaw {
		fmt.Println(rec.Raw())
		return nil
	}

	key := lookupKey
	if key == "" {
		key = convert.EntryKey(settings.KeyPrefix, 0)
	}
	entry := crossref.MapToEntry(rec, key)

	if lookupCopy {
		if err := clipboard.Copy(ctx, export.ToBibTeX(entry)); err != nil {
			log.Error(err, "Could not copy entry to clipboard")
		} else {
			log.Info("Copied entry to clipboard", "key", key)
		}
	}

	if lookupBibTeX || humanOutput {
		fmt.Print(export.ToBibTeX(entry))
		return nil
	}
	return outputJSON(entry)
}
