package listing

import (
	"strings"

	"github.com/teranos/jobpulse/errors"
)

// TermKind discriminates the Term union.
type TermKind int

const (
	// KindNone is a listing that names no hiring period.
	KindNone TermKind = iota
	// KindSeason is a single free-form label such as "Summer 2026".
	KindSeason
	// KindTerms is an ordered list of labels such as ["Fall 2025", "Spring 2026"].
	KindTerms
)

func (k TermKind) String() string {
	switch k {
	case KindSeason:
		return "season"
	case KindTerms:
		return "terms"
	default:
		return "none"
	}
}

// Term is the hiring period of a listing: one season label, an ordered
// sequence of term labels, or nothing at all. Never both.
//
// The zero value is KindNone.
type Term struct {
	kind   TermKind
	season string
	terms  []string
}

// Season returns a Term holding a single season label.
func Season(label string) Term {
	return Term{kind: KindSeason, season: label}
}

// Terms returns a Term holding an ordered sequence of term labels.
func Terms(labels ...string) Term {
	cp := make([]string, len(labels))
	copy(cp, labels)
	return Term{kind: KindTerms, terms: cp}
}

// Kind reports which case the Term holds.
func (t Term) Kind() TermKind { return t.kind }

// IsNone reports whether the listing names no hiring period.
func (t Term) IsNone() bool { return t.kind == KindNone }

// SeasonLabel returns the season label and true when the Term is a season.
func (t Term) SeasonLabel() (string, bool) {
	return t.season, t.kind == KindSeason
}

// TermLabels returns a copy of the term labels and true when the Term is a terms list.
func (t Term) TermLabels() ([]string, bool) {
	if t.kind != KindTerms {
		return nil, false
	}
	cp := make([]string, len(t.terms))
	copy(cp, t.terms)
	return cp, true
}

// Label renders the Term for display: the season, the terms joined by ", ",
// or "" for KindNone.
func (t Term) Label() string {
	switch t.kind {
	case KindSeason:
		return t.season
	case KindTerms:
		return strings.Join(t.terms, ", ")
	default:
		return ""
	}
}

// Equal reports whether two Terms hold the same case and labels.
func (t Term) Equal(o Term) bool {
	if t.kind != o.kind || t.season != o.season || len(t.terms) != len(o.terms) {
		return false
	}
	for i := range t.terms {
		if t.terms[i] != o.terms[i] {
			return false
		}
	}
	return true
}

// termFromWire enforces the at-most-one rule on decoded fields.
func termFromWire(id string, season *string, terms *[]string) (Term, error) {
	switch {
	case season != nil && terms != nil:
		return Term{}, errors.NewInvalidListingError("listing %q has both season and terms", id)
	case season != nil:
		return Season(*season), nil
	case terms != nil:
		return Terms(*terms...), nil
	default:
		return Term{}, nil
	}
}
