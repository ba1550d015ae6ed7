// Package reference defines the core domain types for citation entries.
package reference

import (
	"bytes"
	"encoding/json"
	"slices"
)

// EntryType is the BibTeX entry type of a citation.
type EntryType string

// Supported entry types.
const (
	EntryArticle       EntryType = "article"
	EntryInProceedings EntryType = "inproceedings"
	EntryBook          EntryType = "book"
)

// Recognized BibTeX field names.
const (
	FieldTitle     = "title"
	FieldAuthor    = "author"
	FieldJournal   = "journal"
	FieldYear      = "year"
	FieldVolume    = "volume"
	FieldNumber    = "number"
	FieldPages     = "pages"
	FieldDOI       = "doi"
	FieldURL       = "url"
	FieldAbstract  = "abstract"
	FieldPublisher = "publisher"
	FieldISSN      = "issn"
	FieldBooktitle = "booktitle"
)

// Field is a single name/value pair of an entry.
type Field struct {
	Name  string
	Value string
}

// Entry is a citation record: an identifier, an entry type and an
// insertion-ordered set of non-empty fields.
//
// journal and booktitle are mutually exclusive; setting one removes the other.
// Set and Delete never write to storage shared with a copy of the Entry.
type Entry struct {
	ID     string
	Type   EntryType
	fields []Field
}

// NewEntry creates an empty article entry with the given key.
func NewEntry(id string) Entry {
	return Entry{ID: id, Type: EntryArticle}
}

// Set stores a field value. Setting an empty value removes the field.
// An existing field keeps its position.
func (e *Entry) Set(name, value string) {
	if value == "" {
		e.Delete(name)
		return
	}

	switch name {
	case FieldJournal:
		e.Delete(FieldBooktitle)
	case FieldBooktitle:
		e.Delete(FieldJournal)
	}

	fields := slices.Clone(e.fields)
	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = value
			e.fields = fields
			return
		}
	}
	e.fields = append(fields, Field{Name: name, Value: value})
}

// Get returns the value of a field and whether it is present.
func (e Entry) Get(name string) (string, bool) {
	for _, f := range e.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether a field is present.
func (e Entry) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Delete removes a field if present.
func (e *Entry) Delete(name string) {
	for i, f := range e.fields {
		if f.Name == name {
			e.fields = append(e.fields[:i:i], e.fields[i+1:]...)
			return
		}
	}
}

// Fields returns a copy of the fields in insertion order.
func (e Entry) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Len returns the number of fields.
func (e Entry) Len() int {
	return len(e.fields)
}

// MarshalJSON encodes the entry with its fields as an ordered JSON object.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	if err := writeJSON(&buf, e.ID); err != nil {
		return nil, err
	}
	buf.WriteString(`,"entry_type":`)
	if err := writeJSON(&buf, string(e.Type)); err != nil {
		return nil, err
	}
	buf.WriteString(`,"fields":{`)
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, f.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, f.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
