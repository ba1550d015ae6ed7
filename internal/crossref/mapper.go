package crossref

import (
	"strings"

	"github.com/matsen/doibib/internal/reference"
	"github.com/tidwall/gjson"
)

// Date fields consulted for the publication year, in priority order.
var yearSources = []string{
	"published-print",
	"published-online",
}

// MapToEntry converts a registry record to a citation entry keyed by key.
// Missing or malformed registry fields are simply left out.
func MapToEntry(rec Record, key string) reference.Entry {
	e := reference.NewEntry(key)

	e.Set(reference.FieldTitle, firstString(rec.Get("title")))
	e.Set(reference.FieldAuthor, formatAuthors(mapAuthors(rec.Get("author"))))

	container := firstString(rec.Get("container-title"))
	e.Set(reference.FieldJournal, container)

	e.Set(reference.FieldYear, publicationYear(rec))
	e.Set(reference.FieldVolume, scalarString(rec.Get("volume")))
	e.Set(reference.FieldNumber, scalarString(rec.Get("issue")))
	e.Set(reference.FieldPages, scalarString(rec.Get("page")))
	e.Set(reference.FieldDOI, scalarString(rec.Get("DOI")))
	e.Set(reference.FieldURL, scalarString(rec.Get("URL")))
	e.Set(reference.FieldAbstract, scalarString(rec.Get("abstract")))
	e.Set(reference.FieldPublisher, scalarString(rec.Get("publisher")))
	e.Set(reference.FieldISSN, firstString(rec.Get("ISSN")))

	applyWorkType(&e, rec.Get("type"), container)

	return e
}

// DetermineEntryType classifies a registry work type by substring.
// The heuristic is deliberately loose: "book-chapter" and any other type
// mentioning "book" map to book.
func DetermineEntryType(workType string) reference.EntryType {
	t := strings.ToLower(workType)
	switch {
	case strings.Contains(t, "conference") || strings.Contains(t, "proceedings"):
		return reference.EntryInProceedings
	case strings.Contains(t, "book"):
		return reference.EntryBook
	default:
		return reference.EntryArticle
	}
}

// applyWorkType sets the entry type and moves the container title for
// proceedings and books.
func applyWorkType(e *reference.Entry, workType gjson.Result, container string) {
	if workType.Type != gjson.String {
		return
	}

	e.Type = DetermineEntryType(workType.Str)
	switch e.Type {
	case reference.EntryInProceedings:
		if container != "" {
			e.Set(reference.FieldBooktitle, container)
		}
	case reference.EntryBook:
		e.Delete(reference.FieldJournal)
	}
}

// mapAuthors converts the registry author array.
func mapAuthors(raw gjson.Result) []reference.Author {
	if !raw.IsArray() {
		return nil
	}

	var authors []reference.Author
	for _, a := range raw.Array() {
		if !a.IsObject() {
			continue
		}
		authors = append(authors, reference.Author{
			Family: scalarString(a.Get("family")),
			Given:  scalarString(a.Get("given")),
			Name:   scalarString(a.Get("name")),
		})
	}
	return authors
}

// formatAuthors joins usable author names with " and ".
func formatAuthors(authors []reference.Author) string {
	var names []string
	for _, a := range authors {
		if name := a.BibTeXName(); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, " and ")
}

// publicationYear returns the first year found in the print, then online,
// publication date.
func publicationYear(rec Record) string {
	for _, source := range yearSources {
		if year := scalarString(rec.Get(source + ".date-parts.0.0")); year != "" {
			return year
		}
	}
	return ""
}

// firstString returns the first element of an array value as a string.
func firstString(v gjson.Result) string {
	if !v.IsArray() {
		return ""
	}
	items := v.Array()
	if len(items) == 0 {
		return ""
	}
	return scalarString(items[0])
}

// scalarString stringifies a string, number or boolean. Objects, arrays and
// null yield "".
func scalarString(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	case gjson.True, gjson.False:
		return v.String()
	default:
		return ""
	}
}
