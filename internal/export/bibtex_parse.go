package export

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/nickng/bibtex"
)

// BibTeXIndex indexes existing BibTeX entries for deduplication.
type BibTeXIndex struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// HasDOI reports whether an entry with this DOI is indexed.
func (idx *BibTeXIndex) HasDOI(doi string) bool {
	doi = normalizeDOI(doi)
	if doi == "" {
		return false
	}
	_, ok := idx.DOIs[doi]
	return ok
}

// HasKey reports whether an entry with this citation key is indexed.
func (idx *BibTeXIndex) HasKey(key string) bool {
	return idx.Keys[key]
}

// Len returns the number of indexed entries.
func (idx *BibTeXIndex) Len() int {
	return len(idx.Keys)
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist or is empty.
//
// Files the BibTeX parser rejects (it fails on an "@" inside a value, such
// as an email address in an abstract) are indexed line by line instead.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewBibTeXIndex(), nil
		}
		return nil, err
	}

	if idx, err := parseEntries(data); err == nil {
		return idx, nil
	}
	return scanEntries(data)
}

// parseEntries indexes data with the nickng/bibtex parser.
func parseEntries(data []byte) (*BibTeXIndex, error) {
	bib, err := bibtex.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	idx := NewBibTeXIndex()
	for _, entry := range bib.Entries {
		idx.Keys[entry.CiteName] = true
		for name, value := range entry.Fields {
			if !strings.EqualFold(name, "doi") {
				continue
			}
			if doi := normalizeDOI(value.String()); doi != "" {
				idx.DOIs[doi] = entry.CiteName
			}
		}
	}
	return idx, nil
}

var (
	// entryStartRegex matches an entry header: @type{key,
	entryStartRegex = regexp.MustCompile(`^\s*@\w+\s*\{\s*([^,\s]+)\s*,?`)
	// doiFieldRegex matches doi = {value} or doi = "value"
	doiFieldRegex = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// scanEntries indexes data one line at a time. It only understands entry
// headers and doi fields that start a line, which is how entries are written.
func scanEntries(data []byte) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)

	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()

		if m := entryStartRegex.FindStringSubmatch(line); m != nil {
			currentKey = m[1]
			idx.Keys[currentKey] = true
			continue
		}

		if m := doiFieldRegex.FindStringSubmatch(line); m != nil && currentKey != "" {
			if doi := normalizeDOI(m[1]); doi != "" {
				idx.DOIs[doi] = currentKey
			}
		}
	}

	return idx, scanner.Err()
}

// normalizeDOI normalizes a DOI for comparison.
// Removes common prefixes like "https://doi.org/" and lowercases.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

// WriteBibFile writes serialized entries to path, replacing its contents.
// Each entry is followed by a blank line.
func WriteBibFile(path string, entries []string) error {
	return writeEntries(path, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, entries)
}

// AppendToBibFile appends serialized entries to path, creating it if needed.
// A newline is added first when the file does not already end with one.
func AppendToBibFile(path string, entries []string) error {
	needsNewline, err := lacksFinalNewline(path)
	if err != nil {
		return err
	}
	if needsNewline {
		entries = append([]string{""}, entries...)
	}
	return writeEntries(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, entries)
}

// lacksFinalNewline reports whether path is a non-empty file whose last byte
// is not a newline. A missing file reports false.
func lacksFinalNewline(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	return last[0] != '\n', nil
}

func writeEntries(path string, flag int, entries []string) error {
	file, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if _, err := file.WriteString(entry + "\n"); err != nil {
			file.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	return file.Close()
}
