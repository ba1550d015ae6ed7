package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/matsen/doibib/internal/config"
	"github.com/matsen/doibib/internal/convert"
	"github.com/matsen/doibib/internal/export"
	"github.com/matsen/doibib/internal/pdf"
	"github.com/spf13/cobra"
)

var (
	convertFile   string
	convertPDFs   []string
	convertOutput string
	convertAppend bool
	convertPrefix string
	convertDelay  time.Duration
	convertMailto string
)

func init() {
	convertCmd.Flags().StringVarP(&convertFile, "file", "f", "", "Read DOIs from file, one per line (- for stdin)")
	convertCmd.Flags().StringArrayVar(&convertPDFs, "pdf", nil, "Extract a DOI from a PDF (repeatable)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Write entries to a .bib file instead of stdout")
	convertCmd.Flags().BoolVar(&convertAppend, "append", false, "Append to the output file, skipping DOIs already in it")
	convertCmd.Flags().StringVar(&convertPrefix, "prefix", convert.DefaultKeyPrefix, "Citation key prefix")
	convertCmd.Flags().DurationVar(&convertDelay, "delay", convert.DefaultDelay, "Pause between CrossRef requests")
	convertCmd.Flags().StringVar(&convertMailto, "mailto", "", "Contact email sent in the User-Agent (CrossRef polite pool)")
	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert [DOI...]",
	Short: "Convert DOIs to BibTeX entries",
	Long: `Convert DOIs to BibTeX entries using CrossRef metadata.

DOIs are taken from arguments first, then --file, then --pdf. Each input
keeps its position in the key numbering even when it is skipped, so
convert A B C with B unresolvable yields ref001 and ref003.

Without -o, entries are printed to stdout. With -o, they are written to
the file and a summary is printed.

Examples:
  doibib convert 10.1145/3411764.3445648
  doibib convert --file dois.txt -o refs.bib --prefix smith
  doibib convert --pdf paper.pdf -o refs.bib --append`,
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertAppend && convertOutput == "" {
		exitWithError(ExitError, "--append requires --output")
	}

	log := mustLogger()
	settings := mustResolveSettings(convertOverrides(cmd))

	dois, err := collectDOIs(args, convertFile, convertPDFs, os.Stdin, log)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if len(dois) == 0 {
		exitWithError(ExitError, "no DOIs given (use arguments, --file or --pdf)")
	}

	opts := []convert.Option{
		convert.WithLogger(log.WithName("convert")),
		convert.WithDelay(settings.Delay),
		convert.WithKeyPrefix(settings.KeyPrefix),
	}
	if convertAppend {
		idx, err := export.ParseBibTeXFile(convertOutput)
		if err != nil {
			exitWithError(ExitDataError, "reading %s: %v", convertOutput, err)
		}
		log.Info("Indexed existing entries", "path", convertOutput, "entries", idx.Len())
		opts = append(opts,
			convert.WithSkipDOI(idx.HasDOI),
			convert.WithKeyTaken(idx.HasKey),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conv := convert.New(newCrossrefClient(settings, log), opts...)
	results := conv.Run(ctx, dois)
	entries := okEntries(results)

	if convertOutput == "" {
		for _, entry := range entries {
			fmt.Println(entry)
		}
		if len(entries) == 0 {
			exitWithError(ExitDataError, "no entries produced from %d DOIs", len(dois))
		}
		return nil
	}

	summary := summarize(results, len(dois))
	summary.Output = convertOutput
	summary.Appended = convertAppend

	if len(entries) > 0 {
		write := export.WriteBibFile
		if convertAppend {
			write = export.AppendToBibFile
		}
		if err := write(convertOutput, entries); err != nil {
			exitWithError(ExitError, "writing %s: %v", convertOutput, err)
		}
	}

	if humanOutput {
		fmt.Printf("Wrote %d entries to %s (%d of %d skipped)\n",
			summary.Converted, convertOutput, summary.Skipped, summary.Total)
	} else {
		outputJSON(summary)
	}

	if len(entries) == 0 && !allDuplicates(results) {
		os.Exit(ExitDataError)
	}
	return nil
}

// convertOverrides returns the flag values the user actually set.
func convertOverrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	if cmd.Flags().Changed("mailto") {
		o.Mailto = &convertMailto
	}
	if cmd.Flags().Changed("delay") {
		o.Delay = &convertDelay
	}
	if cmd.Flags().Changed("prefix") {
		o.KeyPrefix = &convertPrefix
	}
	return o
}

// collectDOIs gathers input DOIs from args, then the DOI file, then PDFs.
// A PDF without a readable DOI contributes an empty slot so later keys
// keep their position.
func collectDOIs(args []string, file string, pdfs []string, stdin io.Reader, log logr.Logger) ([]string, error) {
	dois := append([]string{}, args...)

	if file != "" {
		fromFile, err := readDOIFile(file, stdin)
		if err != nil {
			return nil, err
		}
		dois = append(dois, fromFile...)
	}

	for _, path := range pdfs {
		doi, err := pdf.ExtractDOI(path)
		if err != nil {
			log.Error(err, "Error reading PDF", "path", path)
		} else if doi == "" {
			log.Info("No DOI found in PDF", "path", path)
		}
		dois = append(dois, doi)
	}

	return dois, nil
}

// readDOIFile reads a DOI list from path, or from stdin when path is "-".
func readDOIFile(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return readDOIList(stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOI file: %w", err)
	}
	defer file.Close()

	dois, err := readDOIList(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return dois, nil
}

// readDOIList returns one DOI per line, dropping blank lines and # comments.
func readDOIList(r io.Reader) ([]string, error) {
	var dois []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dois = append(dois, line)
	}
	return dois, scanner.Err()
}

// okEntries returns the BibTeX text of every converted result, in order.
func okEntries(results []convert.Result) []string {
	entries := []string{}
	for _, r := range results {
		if r.Status == convert.StatusOK {
			entries = append(entries, r.BibTeX)
		}
	}
	return entries
}

// summarize counts outcomes. Inputs never reached because of cancellation
// count as skipped.
func summarize(results []convert.Result, total int) ConvertSummary {
	s := ConvertSummary{Total: total, Results: results}
	for _, r := range results {
		if r.Status == convert.StatusOK {
			s.Converted++
		}
	}
	s.Skipped = total - s.Converted
	return s
}

// allDuplicates reports whether every result was skipped as already present.
func allDuplicates(results []convert.Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Status != convert.StatusDuplicate {
			return false
		}
	}
	return true
}
