// Package sqlstore implements the snapshot and alert stores on database/sql.
// The same queries serve SQLite and PostgreSQL; only placeholders differ.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/jobpulse/db"
	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/store"
)

// Store persists snapshots and alert history in a migrated database.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// New wraps a database that has already been migrated for dialect.
func New(conn *sql.DB, dialect db.Dialect, log *zap.SugaredLogger) *Store {
	return &Store{
		db:      conn,
		dialect: dialect,
		logger:  logger.OrNop(log).Named("sqlstore"),
		now:     time.Now,
	}
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// Load implements store.SnapshotStore.
func (s *Store) Load(ctx context.Context, source string) (listing.Snapshot, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.q("SELECT data FROM snapshots WHERE source = ?"), source).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "load snapshot %s", source)
	}

	snap, err := listing.ParseSnapshot([]byte(data))
	if err != nil {
		return nil, false, errors.NewCorruptStateError(err, "decode stored snapshot "+source)
	}
	return snap, true, nil
}

// Save implements store.SnapshotStore.
func (s *Store) Save(ctx context.Context, source string, snap listing.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO snapshots (source, data, listing_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (source) DO UPDATE SET
			data = excluded.data,
			listing_count = excluded.listing_count,
			updated_at = excluded.updated_at`),
		source, string(data), len(snap), s.now().UTC())
	if err != nil {
		return errors.Wrapf(err, "save snapshot %s", source)
	}
	return nil
}

// Append implements store.AlertStore.
func (s *Store) Append(ctx context.Context, slug listing.AlertSlug, rec store.AlertRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		s.q("INSERT INTO alert_records (slug, handle, payload, created_at) VALUES (?, ?, ?, ?)"),
		string(slug), rec.Handle, string(rec.Payload), rec.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "append alert for %s", slug)
	}
	return nil
}

// History implements store.AlertStore. Rows whose payload is not valid JSON
// are skipped and logged.
func (s *Store) History(ctx context.Context, slug listing.AlertSlug) ([]store.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT handle, payload, created_at FROM alert_records WHERE slug = ? ORDER BY id"),
		string(slug))
	if err != nil {
		return nil, errors.Wrapf(err, "query alert history for %s", slug)
	}
	defer rows.Close()

	var records []store.AlertRecord
	for rows.Next() {
		var (
			rec     store.AlertRecord
			payload string
		)
		if err := rows.Scan(&rec.Handle, &payload, &rec.CreatedAt); err != nil {
			return nil, errors.Wrapf(err, "scan alert record for %s", slug)
		}
		if !json.Valid([]byte(payload)) {
			s.logger.Warnw("Skipping alert record with corrupt payload",
				logger.FieldSlug, slug,
				logger.FieldHandle, rec.Handle)
			continue
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate alert history for %s", slug)
	}
	return records, nil
}

// Clear implements store.AlertStore.
func (s *Store) Clear(ctx context.Context, slug listing.AlertSlug) error {
	if _, err := s.db.ExecContext(ctx, s.q("DELETE FROM alert_records WHERE slug = ?"), string(slug)); err != nil {
		return errors.Wrapf(err, "clear alert history for %s", slug)
	}
	return nil
}

// Slugs implements store.AlertStore.
func (s *Store) Slugs(ctx context.Context) ([]listing.AlertSlug, error) {
	rows, err := s.db.QueryContext(ctx, s.q("SELECT DISTINCT slug FROM alert_records ORDER BY slug"))
	if err != nil {
		return nil, errors.Wrap(err, "query alert slugs")
	}
	defer rows.Close()

	var slugs []listing.AlertSlug
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, errors.Wrap(err, "scan alert slug")
		}
		slugs = append(slugs, listing.AlertSlug(slug))
	}
	return slugs, errors.Wrap(rows.Err(), "iterate alert slugs")
}

var (
	_ store.SnapshotStore = (*Store)(nil)
	_ store.AlertStore    = (*Store)(nil)
)
