package crossref

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DOI URL prefixes stripped before building request URLs.
var doiURLPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
}

// NormalizeDOI trims whitespace and strips a leading https://doi.org/ or
// http://doi.org/ prefix. Case is preserved; the registry resolves DOIs
// case-insensitively.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range doiURLPrefixes {
		if strings.HasPrefix(doi, prefix) {
			return doi[len(prefix):]
		}
	}
	return doi
}

// Record is an untyped registry work record (the "message" object of a
// works response). The zero value is an empty record.
type Record struct {
	res gjson.Result
}

// ParseRecord wraps a raw JSON message object.
func ParseRecord(raw string) Record {
	return Record{res: gjson.Parse(raw)}
}

// parseWork extracts the message object from a works response body.
func parseWork(body []byte) (Record, error) {
	if !gjson.ValidBytes(body) {
		return Record{}, fmt.Errorf("%w: body is not JSON", ErrInvalidResponse)
	}
	return Record{res: gjson.GetBytes(body, "message")}, nil
}

// Get returns the value at a gjson path (e.g. "published-print.date-parts.0.0").
func (r Record) Get(path string) gjson.Result {
	return r.res.Get(path)
}

// Empty reports whether the record carries no keys.
func (r Record) Empty() bool {
	if !r.res.IsObject() {
		return true
	}
	empty := true
	r.res.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return empty
}

// Raw returns the record's raw JSON, or "{}" for an empty record.
func (r Record) Raw() string {
	if !r.res.IsObject() {
		return "{}"
	}
	return r.res.Raw
}
