// Package memory provides in-process SnapshotStore and AlertStore
// implementations for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/store"
)

// SnapshotStore keeps snapshots in a map. With a seed store, reads of sources
// not yet saved locally fall through to the seed; writes never reach it.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]listing.Snapshot
	seed  store.SnapshotStore
}

// NewSnapshotStore creates an empty store. seed may be nil.
func NewSnapshotStore(seed store.SnapshotStore) *SnapshotStore {
	return &SnapshotStore{
		snaps: make(map[string]listing.Snapshot),
		seed:  seed,
	}
}

func (s *SnapshotStore) Load(ctx context.Context, source string) (listing.Snapshot, bool, error) {
	s.mu.RLock()
	snap, ok := s.snaps[source]
	s.mu.RUnlock()
	if ok {
		return cloneSnapshot(snap), true, nil
	}
	if s.seed != nil {
		return s.seed.Load(ctx, source)
	}
	return nil, false, nil
}

func (s *SnapshotStore) Save(_ context.Context, source string, snap listing.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[source] = cloneSnapshot(snap)
	return nil
}

func cloneSnapshot(snap listing.Snapshot) listing.Snapshot {
	if snap == nil {
		return listing.Snapshot{}
	}
	cp := make(listing.Snapshot, len(snap))
	copy(cp, snap)
	return cp
}

// AlertStore keeps alert history in a map.
type AlertStore struct {
	mu      sync.RWMutex
	records map[listing.AlertSlug][]store.AlertRecord
	now     func() time.Time
}

// NewAlertStore creates an empty AlertStore.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		records: make(map[listing.AlertSlug][]store.AlertRecord),
		now:     time.Now,
	}
}

func (s *AlertStore) Append(_ context.Context, slug listing.AlertSlug, rec store.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	s.records[slug] = append(s.records[slug], rec)
	return nil
}

func (s *AlertStore) History(_ context.Context, slug listing.AlertSlug) ([]store.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[slug]
	if len(recs) == 0 {
		return nil, nil
	}
	cp := make([]store.AlertRecord, len(recs))
	copy(cp, recs)
	return cp, nil
}

func (s *AlertStore) Clear(_ context.Context, slug listing.AlertSlug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, slug)
	return nil
}

func (s *AlertStore) Slugs(_ context.Context) ([]listing.AlertSlug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slugs := make([]listing.AlertSlug, 0, len(s.records))
	for slug := range s.records {
		slugs = append(slugs, slug)
	}
	sort.Slice(slugs, func(i, j int) bool { return slugs[i] < slugs[j] })
	return slugs, nil
}

var (
	_ store.SnapshotStore = (*SnapshotStore)(nil)
	_ store.AlertStore    = (*AlertStore)(nil)
)
