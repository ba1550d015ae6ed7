// Package export renders citation entries as BibTeX and manages .bib files.
package export

import (
	"strings"

	"github.com/matsen/doibib/internal/reference"
)

// Indent is the indentation of field lines.
const Indent = "  "

// ToBibTeX renders an entry in BibTeX syntax. Field names are padded to the
// widest name in the entry so that the "=" signs line up; fields appear in
// insertion order and values are written verbatim inside braces.
//
//	@article{ref001,
//	  title   = {T},
//	  journal = {J}
//	}
func ToBibTeX(e reference.Entry) string {
	fields := e.Fields()

	width := 0
	for _, f := range fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}

	var b strings.Builder
	b.WriteString("@")
	b.WriteString(string(e.Type))
	b.WriteString("{")
	b.WriteString(e.ID)

	for _, f := range fields {
		b.WriteString(",\n")
		b.WriteString(Indent)
		b.WriteString(f.Name)
		b.WriteString(strings.Repeat(" ", width-len(f.Name)))
		b.WriteString(" = {")
		b.WriteString(f.Value)
		b.WriteString("}")
	}

	b.WriteString("\n}\n")

	return b.String()
}
