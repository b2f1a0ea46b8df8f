// Package roster is a minimal external collaborator standing in for the
// out-of-scope CSV roster ingestion and fuzzy school-name matcher. It
// resolves a school name to its official CDS code by exact match only.
package roster

import "strings"

// Roster maps school names to CDS codes.
type Roster struct {
	byName map[string]string // lower-cased name -> cdsCode
}

// New builds a Roster from a name->cdsCode map.
func New(entries map[string]string) *Roster {
	r := &Roster{byName: make(map[string]string, len(entries))}
	for name, cds := range entries {
		r.byName[strings.ToLower(name)] = cds
	}
	return r
}

// Resolve looks up a school's CDS code by exact (case-insensitive) name
// match. Fuzzy matching (substring, edit-distance) is out of scope.
func (r *Roster) Resolve(name string) (cdsCode string, ok bool) {
	cdsCode, ok = r.byName[strings.ToLower(name)]
	return cdsCode, ok
}
