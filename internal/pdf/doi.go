// Package pdf extracts DOIs from PDF files so papers on disk can be fed to
// the converter.
package pdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxScanPages is how many leading pages are searched for a DOI.
const MaxScanPages = 3

// doiPattern matches 10.<registrant>/<suffix>.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// sentencePunct may end a sentence right after a DOI.
const sentencePunct = ".,;:'"

// ExtractDOI returns the first DOI printed on the leading pages of a PDF,
// or "" if there is none. Pages whose text cannot be decoded are skipped.
func ExtractDOI(path string) (doi string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	// the PDF reader panics on some malformed content streams
	defer func() {
		if p := recover(); p != nil {
			doi, err = "", fmt.Errorf("reading %s: %v", path, p)
		}
	}()

	for n := 1; n <= r.NumPage() && n <= MaxScanPages; n++ {
		text, ok := pageText(r.Page(n))
		if !ok {
			continue
		}
		if doi := FindDOI(text); doi != "" {
			return doi, nil
		}
	}
	return "", nil
}

// pageText returns the plain text of a page, or false if it has none.
func pageText(p pdf.Page) (string, bool) {
	if p.V.IsNull() {
		return "", false
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

// FindDOI returns the first DOI in text, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		if doi := trimDOI(match); hasSuffix(doi) {
			return doi
		}
	}
	return ""
}

// trimDOI strips trailing sentence punctuation and unbalanced closing
// parentheses, so "(doi:10.1000/182)." yields 10.1000/182 while
// 10.1016/S0140-6736(20)30183-5 keeps its parentheses.
func trimDOI(s string) string {
	for s != "" {
		last := s[len(s)-1]
		switch {
		case strings.IndexByte(sentencePunct, last) >= 0:
		case last == ')' && strings.Count(s, "(") < strings.Count(s, ")"):
		default:
			return s
		}
		s = s[:len(s)-1]
	}
	return s
}

// hasSuffix reports whether a DOI has a non-empty part after the slash.
func hasSuffix(doi string) bool {
	slash := strings.IndexByte(doi, '/')
	return slash >= 0 && slash < len(doi)-1
}
