// Package profile defines the contact record produced for each advisor page
// and the merge rule used to reconcile extraction candidates.
package profile

import "strings"

// Record is the reconciled contact sheet for one advisor profile page.
// Fields hold trimmed, non-empty text; the empty string means "absent".
type Record struct {
	Name       string
	Phone      string
	Phone2     string
	ZIP        string
	City       string
	Street     string
	Email      string
	ProfileURL string
}

// New creates an empty record bound to its source URL. ProfileURL is set
// here and never overwritten afterwards.
func New(profileURL string) Record {
	return Record{ProfileURL: profileURL}
}

// Empty reports whether the record carries none of the signals worth
// exporting. Used for run reporting only; empty records are still emitted.
func (r Record) Empty() bool {
	return r.Name == "" && r.Phone == "" && r.Email == ""
}

// Merge copies each candidate field into base when the base field is still
// unset and the candidate value is non-empty after trimming. First writer
// wins per field, so earlier extraction tiers are never clobbered.
func Merge(base *Record, extra Record) {
	if base.Name == "" {
		base.Name = Clean(extra.Name)
	}
	if base.Phone == "" {
		base.Phone = Clean(extra.Phone)
	}
	if base.Phone2 == "" {
		base.Phone2 = Clean(extra.Phone2)
	}
	if base.ZIP == "" {
		base.ZIP = Clean(extra.ZIP)
	}
	if base.City == "" {
		base.City = Clean(extra.City)
	}
	if base.Street == "" {
		base.Street = Clean(extra.Street)
	}
	if base.Email == "" {
		base.Email = Clean(extra.Email)
	}
}

// Clean trims surrounding whitespace; a value that is empty after trimming
// collapses to the absent value.
func Clean(s string) string {
	return strings.TrimSpace(s)
}

// Headers returns the fixed export column order.
func Headers() []string {
	return []string{"Name", "Phone", "Phone 2", "ZIP", "City", "Street", "Email", "Profile URL"}
}

// Row returns the record's values in Headers order.
func (r Record) Row() []string {
	return []string{r.Name, r.Phone, r.Phone2, r.ZIP, r.City, r.Street, r.Email, r.ProfileURL}
}
