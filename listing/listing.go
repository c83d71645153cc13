// Package listing defines the job listing data model shared by the diff
// engine, the alert lifecycle and the notification renderers.
package listing

import (
	"encoding/json"
	"time"

	"github.com/teranos/jobpulse/errors"
)

// SourceSimplify is the upstream source tag for listings hosted on simplify.jobs.
const SourceSimplify = "Simplify"

// Listing is one job posting as published in a repository's listings file.
// Listings are immutable values; the diff engine never mutates them.
type Listing struct {
	ID          string
	Source      string
	CompanyName string
	CompanyURL  string // empty when unknown
	Title       string
	Locations   []string
	Sponsorship string
	URL         string
	Active      bool
	Visible     bool
	DatePosted  int64 // epoch seconds
	DateUpdated int64 // epoch seconds
	Term        Term
}

// Key is the identity of a listing across snapshots.
type Key struct {
	ID          string
	CompanyName string
}

// Key returns the listing's identity.
func (l Listing) Key() Key {
	return Key{ID: l.ID, CompanyName: l.CompanyName}
}

// Open reports whether the listing is both active and visible.
func (l Listing) Open() bool {
	return l.Active && l.Visible
}

// PostedAt returns DatePosted as a time.
func (l Listing) PostedAt() time.Time {
	return time.Unix(l.DatePosted, 0).UTC()
}

// OlderThan reports whether the listing was posted more than age before now.
// A non-positive age never filters.
func (l Listing) OlderThan(age time.Duration, now time.Time) bool {
	if age <= 0 {
		return false
	}
	return now.Sub(l.PostedAt()) > age
}

// wireListing mirrors the upstream listings.json field names.
type wireListing struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	CompanyName string    `json:"company_name"`
	CompanyURL  string    `json:"company_url"`
	Title       string    `json:"title"`
	Locations   []string  `json:"locations"`
	Sponsorship string    `json:"sponsorship"`
	Active      bool      `json:"active"`
	URL         string    `json:"url"`
	Visible     bool      `json:"is_visible"`
	DatePosted  int64     `json:"date_posted"`
	DateUpdated int64     `json:"date_updated"`
	Season      *string   `json:"season,omitempty"`
	Terms       *[]string `json:"terms,omitempty"`
}

// UnmarshalJSON decodes the upstream format and rejects listings that carry
// both season and terms.
func (l *Listing) UnmarshalJSON(data []byte) error {
	var w wireListing
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Mark(errors.Wrap(err, "decode listing"), errors.ErrInvalidListing)
	}

	term, err := termFromWire(w.ID, w.Season, w.Terms)
	if err != nil {
		return err
	}

	*l = Listing{
		ID:          w.ID,
		Source:      w.Source,
		CompanyName: w.CompanyName,
		CompanyURL:  w.CompanyURL,
		Title:       w.Title,
		Locations:   w.Locations,
		Sponsorship: w.Sponsorship,
		URL:         w.URL,
		Active:      w.Active,
		Visible:     w.Visible,
		DatePosted:  w.DatePosted,
		DateUpdated: w.DateUpdated,
		Term:        term,
	}
	return nil
}

// MarshalJSON encodes the listing in the upstream format.
func (l Listing) MarshalJSON() ([]byte, error) {
	w := wireListing{
		ID:          l.ID,
		Source:      l.Source,
		CompanyName: l.CompanyName,
		CompanyURL:  l.CompanyURL,
		Title:       l.Title,
		Locations:   l.Locations,
		Sponsorship: l.Sponsorship,
		Active:      l.Active,
		URL:         l.URL,
		Visible:     l.Visible,
		DatePosted:  l.DatePosted,
		DateUpdated: l.DateUpdated,
	}

	switch l.Term.Kind() {
	case KindSeason:
		s, _ := l.Term.SeasonLabel()
		w.Season = &s
	case KindTerms:
		ts, _ := l.Term.TermLabels()
		w.Terms = &ts
	}

	return json.Marshal(w)
}
