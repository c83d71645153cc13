package listing

import (
	"strings"
	"unicode"
)

// AlertSlug is the lookup key for a listing's notification history:
// source, normalized company name and listing id joined by "/".
type AlertSlug string

// SlugFor builds the AlertSlug for a listing published by source.
func SlugFor(source string, l Listing) AlertSlug {
	return AlertSlug(source + "/" + NormalizeCompany(l.CompanyName) + "/" + l.ID)
}

func (s AlertSlug) String() string { return string(s) }

// NormalizeCompany lowercases a company name and collapses every run of
// non-alphanumeric characters into a single "-".
func NormalizeCompany(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
