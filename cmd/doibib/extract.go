package main

import (
	"fmt"

	"github.com/matsen/doibib/internal/pdf"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>...",
	Short: "Extract DOIs from PDFs",
	Long: `Extract the first DOI printed on the leading pages of each PDF.

PDFs without a DOI are reported with an empty doi. The output can be fed
to convert --file after filtering.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	results := extractDOIs(args)

	if humanOutput {
		for _, r := range results {
			switch {
			case r.Error != "":
				fmt.Printf("%s\terror: %s\n", r.Path, r.Error)
			case r.DOI == "":
				fmt.Printf("%s\t(no DOI)\n", r.Path)
			default:
				fmt.Printf("%s\t%s\n", r.Path, r.DOI)
			}
		}
		return nil
	}
	return outputJSON(results)
}

// extractDOIs scans each PDF in order; failures are reported per file.
func extractDOIs(paths []string) []ExtractResult {
	results := make([]ExtractResult, 0, len(paths))
	for _, path := range paths {
		doi, err := pdf.ExtractDOI(path)
		r := ExtractResult{Path: path, DOI: doi}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}
