// Package ledger stores the record of every allocated migration name.
//
// The ledger is a single JSON array of records kept next to the migration
// files it describes:
//
//	[
//	  {
//	    "name": "20240307_init_schema",
//	    "updated": false,
//	    "description": "first migration"
//	  }
//	]
//
// No two records share a name. Records are only ever appended; the
// allocator never rewrites or removes an existing entry.
package ledger

import "fmt"

// Record is one allocated migration.
type Record struct {
	// Name is the unique migration identifier, also the .sql file stem.
	Name string `json:"name"`

	// Updated is owned by the tooling that applies migrations. New records
	// always start false.
	Updated bool `json:"updated"`

	// Description is free text supplied when the name was allocated.
	Description string `json:"description"`
}

// Ledger is the ordered sequence of records.
type Ledger []Record

// Contains reports whether a record named name exists.
func (l Ledger) Contains(name string) bool {
	_, ok := l.Find(name)
	return ok
}

// Find returns the first record named name.
func (l Ledger) Find(name string) (Record, bool) {
	for _, r := range l {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// Append adds rec to the end of the ledger. It refuses names that are
// already present.
func (l *Ledger) Append(rec Record) error {
	if l.Contains(rec.Name) {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.Name)
	}
	*l = append(*l, rec)
	return nil
}

// SetUpdated sets the updated flag of the record named name.
func (l Ledger) SetUpdated(name string, updated bool) error {
	for i := range l {
		if l[i].Name == name {
			l[i].Updated = updated
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Names returns the record names in ledger order.
func (l Ledger) Names() []string {
	names := make([]string, len(l))
	for i, r := range l {
		names[i] = r.Name
	}
	return names
}

// Duplicates returns every name that appears more than once, in order of
// first repetition. A ledger written only by this package has none; hand
// edits can introduce them.
func (l Ledger) Duplicates() []string {
	seen := make(map[string]int, len(l))
	var dups []string
	for _, r := range l {
		seen[r.Name]++
		if seen[r.Name] == 2 {
			dups = append(dups, r.Name)
		}
	}
	return dups
}

// Pending returns the records whose updated flag is still false.
func (l Ledger) Pending() Ledger {
	var out Ledger
	for _, r := range l {
		if !r.Updated {
			out = append(out, r)
		}
	}
	return out
}
