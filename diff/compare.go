// Package diff classifies listings into opened and closed sets across two
// snapshots of the same source.
package diff

import "github.com/teranos/jobpulse/listing"

// Result holds the transitions found by Compare, in the order the listings
// appear in the current snapshot.
type Result struct {
	Opened []listing.Listing
	Closed []listing.Listing
}

// Empty reports whether Compare found no transitions.
func (r Result) Empty() bool {
	return len(r.Opened) == 0 && len(r.Closed) == 0
}

// Compare returns the listings of current that opened or closed relative to
// previous. hasPrevious false means the source was never seen before.
//
// A listing opens when it is active and visible and either is unknown to
// previous or was not active and visible there. A matched listing closes when
// it lost its active or visible flag. Listings missing from current are
// ignored: disappearing is not closing.
func Compare(previous listing.Snapshot, hasPrevious bool, current listing.Snapshot) Result {
	var res Result

	if !hasPrevious {
		for _, l := range current {
			if l.Open() {
				res.Opened = append(res.Opened, l)
			}
		}
		return res
	}

	prev := previous.Index()
	for _, l := range current {
		m, matched := prev[l.Key()]
		switch {
		case !matched:
			if l.Open() {
				res.Opened = append(res.Opened, l)
			}
		case l.Open() && !m.Open():
			res.Opened = append(res.Opened, l)
		case closedSince(m, l):
			res.Closed = append(res.Closed, l)
		}
	}

	return res
}

func closedSince(prev, curr listing.Listing) bool {
	return (prev.Active && !curr.Active) || (prev.Visible && !curr.Visible)
}
