package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/doibib/internal/convert"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConvertSummary is the response for convert when writing to a file.
type ConvertSummary struct {
	Output    string           `json:"output"`
	Appended  bool             `json:"appended"`
	Total     int              `json:"total"`
	Converted int              `json:"converted"`
	Skipped   int              `json:"skipped"`
	Results   []convert.Result `json:"results"`
}

// ExtractResult is one PDF in the extract response.
type ExtractResult struct {
	Path  string `json:"path"`
	DOI   string `json:"doi"`
	Error string `json:"error,omitempty"`
}

// ConfigResponse is the response for config show.
type ConfigResponse struct {
	Path   string            `json:"path"`
	Values map[string]string `json:"values"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}
