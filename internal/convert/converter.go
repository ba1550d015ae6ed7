// Package convert drives the DOI to BibTeX pipeline: fetch each DOI, map the
// registry record and serialize the entry, one DOI at a time.
package convert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/matsen/doibib/internal/crossref"
	"github.com/matsen/doibib/internal/export"
	"github.com/matsen/doibib/internal/reference"
)

const (
	// DefaultDelay is the pause between processed DOIs.
	DefaultDelay = time.Second

	// DefaultKeyPrefix prefixes generated citation keys.
	DefaultKeyPrefix = "ref"
)

// Fetcher retrieves a registry record for a DOI. It returns false when the
// record could not be fetched; it never fails otherwise.
type Fetcher interface {
	Fetch(ctx context.Context, doi string) (crossref.Record, bool)
}

// Status is the outcome of one input DOI.
type Status string

// Possible outcomes.
const (
	StatusOK        Status = "ok"
	StatusEmpty     Status = "empty"
	StatusNotFound  Status = "not_found"
	StatusDuplicate Status = "duplicate"
)

// Result records what happened to one input DOI.
type Result struct {
	Index  int              `json:"index"`
	DOI    string           `json:"doi"`
	Key    string           `json:"key,omitempty"`
	Status Status           `json:"status"`
	Entry  *reference.Entry `json:"-"`
	BibTeX string           `json:"-"`
}

// Converter turns DOIs into BibTeX entries.
type Converter struct {
	fetcher   Fetcher
	log       logr.Logger
	delay     time.Duration
	keyPrefix string
	skipDOI   func(doi string) bool
	keyTaken  func(key string) bool
	pause     func(ctx context.Context, d time.Duration) error
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used to report skipped DOIs and progress.
func WithLogger(log logr.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// WithDelay sets the pause inserted after each processed DOI except the last.
func WithDelay(d time.Duration) Option {
	return func(c *Converter) {
		c.delay = d
	}
}

// WithKeyPrefix sets the citation key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Converter) {
		c.keyPrefix = prefix
	}
}

// WithSkipDOI skips, without fetching, every DOI for which skip returns true.
func WithSkipDOI(skip func(doi string) bool) Option {
	return func(c *Converter) {
		c.skipDOI = skip
	}
}

// WithKeyTaken shifts key numbering past keys for which taken returns true.
// All keys of a batch move by the same offset, so numbering still follows
// input position.
func WithKeyTaken(taken func(key string) bool) Option {
	return func(c *Converter) {
		c.keyTaken = taken
	}
}

// WithPauser replaces the function used to wait between DOIs.
func WithPauser(pause func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Converter) {
		c.pause = pause
	}
}

// New creates a Converter that fetches records through f.
func New(f Fetcher, opts ...Option) *Converter {
	c := &Converter{
		fetcher:   f,
		log:       logr.Discard(),
		delay:     DefaultDelay,
		keyPrefix: DefaultKeyPrefix,
		pause:     sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// EntryKey builds the citation key for the input at index (0-based):
// the prefix followed by index+1 padded to at least three digits.
func EntryKey(prefix string, index int) string {
	return fmt.Sprintf("%s%03d", prefix, index+1)
}

// CreateEntries converts dois to BibTeX entries. DOIs that are empty or
// cannot be fetched are logged and skipped; keys keep the input numbering.
func (c *Converter) CreateEntries(ctx context.Context, dois []string) []string {
	var entries []string
	for _, r := range c.Run(ctx, dois) {
		if r.Status == StatusOK {
			entries = append(entries, r.BibTeX)
		}
	}
	if entries == nil {
		entries = []string{}
	}
	return entries
}

// Run processes dois in order and reports the outcome of each one that was
// reached. Requests are strictly sequential; after every processed DOI but
// the last input the converter pauses for its delay. A cancelled context
// stops the batch.
func (c *Converter) Run(ctx context.Context, dois []string) []Result {
	results := make([]Result, 0, len(dois))

	offset := c.keyOffset(len(dois))
	if offset > 0 {
		c.log.Info("Existing keys found, shifting key numbering", "offset", offset, "firstKey", EntryKey(c.keyPrefix, offset))
	}

	for i, doi := range dois {
		if ctx.Err() != nil {
			c.log.Info("Batch cancelled", "processed", i, "total", len(dois))
			break
		}

		result := Result{Index: i, DOI: doi}

		if strings.TrimSpace(doi) == "" {
			c.log.Info("Empty DOI, skipping", "index", i, "reason", StatusEmpty)
			result.Status = StatusEmpty
			results = append(results, result)
			continue
		}

		if c.skipDOI != nil && c.skipDOI(doi) {
			c.log.Info("DOI already present, skipping", "index", i, "doi", doi, "reason", StatusDuplicate)
			result.Status = StatusDuplicate
			results = append(results, result)
			continue
		}

		c.log.Info("Fetching data for DOI", "doi", doi)
		rec, ok := c.fetcher.Fetch(ctx, doi)
		if !ok || rec.Empty() {
			c.log.Info("Could not fetch data for DOI, skipping", "index", i, "doi", doi, "reason", StatusNotFound)
			result.Status = StatusNotFound
			results = append(results, result)
			continue
		}

		result.Key = EntryKey(c.keyPrefix, offset+i)
		entry := crossref.MapToEntry(rec, result.Key)
		result.Entry = &entry
		result.BibTeX = export.ToBibTeX(entry)
		result.Status = StatusOK
		results = append(results, result)

		c.log.Info("Converted DOI to BibTeX", "doi", doi, "key", result.Key)

		if i < len(dois)-1 && c.delay > 0 {
			if err := c.pause(ctx, c.delay); err != nil {
				c.log.Info("Batch cancelled", "processed", i+1, "total", len(dois))
				break
			}
		}
	}

	return results
}

// keyOffset returns the smallest offset at which none of the n keys of a
// batch is taken.
func (c *Converter) keyOffset(n int) int {
	if c.keyTaken == nil {
		return 0
	}

	offset := 0
	for i := 0; i < n; i++ {
		if c.keyTaken(EntryKey(c.keyPrefix, offset+i)) {
			offset += i + 1
			i = -1
		}
	}
	return offset
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
