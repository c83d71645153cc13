// Package store declares the persistence contracts for snapshots and alert
// history. Implementations live in the sqlstore, redisstore and memory
// subpackages; the watcher receives them by injection.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/teranos/jobpulse/listing"
)

// SnapshotStore persists the last-seen snapshot per source.
type SnapshotStore interface {
	// Load returns the stored snapshot for source. found is false when no
	// snapshot was ever saved. An undecodable snapshot is reported as an
	// error wrapping errors.ErrCorruptState.
	Load(ctx context.Context, source string) (snap listing.Snapshot, found bool, err error)

	// Save replaces the stored snapshot for source.
	Save(ctx context.Context, source string, snap listing.Snapshot) error
}

// AlertRecord is one notification delivered for a listing.
type AlertRecord struct {
	Handle    string          `json:"handle"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// AlertStore persists the notification history of each listing.
//
// Callers serialize mutations for a slug; implementations only guarantee that
// an Append is visible to the next History of the same slug.
type AlertStore interface {
	Append(ctx context.Context, slug listing.AlertSlug, rec AlertRecord) error
	History(ctx context.Context, slug listing.AlertSlug) ([]AlertRecord, error)
	// Clear removes every record for slug. Clearing an unknown slug is not an error.
	Clear(ctx context.Context, slug listing.AlertSlug) error
	// Slugs lists every slug with at least one record, sorted.
	Slugs(ctx context.Context) ([]listing.AlertSlug, error)
}
