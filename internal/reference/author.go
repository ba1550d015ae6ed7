package reference

// Author is a contributor as reported by the metadata registry.
// Organizations usually carry only Name.
type Author struct {
	Family string `json:"family,omitempty"`
	Given  string `json:"given,omitempty"`
	Name   string `json:"name,omitempty"`
}

// BibTeXName renders the author for a BibTeX author list:
// "Family, Given", then "Family", then Name. Returns "" if nothing is usable.
func (a Author) BibTeXName() string {
	switch {
	case a.Family != "" && a.Given != "":
		return a.Family + ", " + a.Given
	case a.Family != "":
		return a.Family
	default:
		return a.Name
	}
}
