package listing

import (
	"bytes"
	"encoding/json"

	"github.com/teranos/jobpulse/errors"
)

// Snapshot is the ordered list of listings one source published at one time.
type Snapshot []Listing

// Index maps each identity to the first listing carrying it.
func (s Snapshot) Index() map[Key]Listing {
	idx := make(map[Key]Listing, len(s))
	for _, l := range s {
		if _, dup := idx[l.Key()]; !dup {
			idx[l.Key()] = l
		}
	}
	return idx
}

// ParseSnapshot decodes a listings file.
//
// Entries that violate the listing data model are skipped; the returned
// error (if any) joins one error per rejected entry and wraps
// ErrInvalidListing. A document that is not a JSON array fails outright with
// a nil snapshot.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, errors.NewCorruptStateError(err, "decode listings array")
	}

	snap := make(Snapshot, 0, len(raw))
	var rejected error
	for i, entry := range raw {
		var l Listing
		if err := json.Unmarshal(entry, &l); err != nil {
			rejected = errors.Join(rejected, errors.Wrapf(err, "entry %d", i))
			continue
		}
		snap = append(snap, l)
	}

	if rejected != nil {
		return snap, errors.Mark(rejected, errors.ErrInvalidListing)
	}
	return snap, nil
}

// Encode serializes the snapshot in the upstream format.
func (s Snapshot) Encode() ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	data, err := json.Marshal([]Listing(s))
	if err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	return data, nil
}
