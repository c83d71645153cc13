// Package redisstore implements the snapshot and alert stores on Redis.
//
// Keys:
//
//	<prefix>:snapshot:<source>  string, JSON listings array
//	<prefix>:alerts:<slug>      list, one JSON AlertRecord per entry
//	<prefix>:alerts             set of slugs with history
package redisstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/logger"
	"github.com/teranos/jobpulse/store"
)

// DefaultPrefix namespaces every key written by Store.
const DefaultPrefix = "jobpulse"

// Store persists snapshots and alert history in Redis.
type Store struct {
	rdb    redis.Cmdable
	prefix string
	logger *zap.SugaredLogger
	now    func() time.Time
}

// Connect parses redisURL and verifies connectivity.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis URL")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.WithHint(errors.Wrap(err, "redis ping failed"),
			"check storage.dsn and that the server is reachable")
	}
	return client, nil
}

// New creates a Store. An empty prefix uses DefaultPrefix.
func New(rdb redis.Cmdable, prefix string, log *zap.SugaredLogger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		rdb:    rdb,
		prefix: prefix,
		logger: logger.OrNop(log).Named("redisstore"),
		now:    time.Now,
	}
}

func (s *Store) snapshotKey(source string) string {
	return s.prefix + ":snapshot:" + source
}

func (s *Store) alertsKey(slug listing.AlertSlug) string {
	return s.prefix + ":alerts:" + string(slug)
}

func (s *Store) indexKey() string {
	return s.prefix + ":alerts"
}

// Load implements store.SnapshotStore.
func (s *Store) Load(ctx context.Context, source string) (listing.Snapshot, bool, error) {
	data, err := s.rdb.Get(ctx, s.snapshotKey(source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "load snapshot %s", source)
	}

	snap, err := listing.ParseSnapshot(data)
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
	if err := s.rdb.Set(ctx, s.snapshotKey(source), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "save snapshot %s", source)
	}
	return nil
}

// Append implements store.AlertStore.
func (s *Store) Append(ctx context.Context, slug listing.AlertSlug, rec store.AlertRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encode alert record for %s", slug)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.alertsKey(slug), data)
		pipe.SAdd(ctx, s.indexKey(), string(slug))
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "append alert for %s", slug)
	}
	return nil
}

// History implements store.AlertStore. Entries that fail to decode are
// skipped and logged.
func (s *Store) History(ctx context.Context, slug listing.AlertSlug) ([]store.AlertRecord, error) {
	entries, err := s.rdb.LRange(ctx, s.alertsKey(slug), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "query alert history for %s", slug)
	}
	return s.decodeRecords(slug, entries), nil
}

func (s *Store) decodeRecords(slug listing.AlertSlug, entries []string) []store.AlertRecord {
	var records []store.AlertRecord
	for i, entry := range entries {
		var rec store.AlertRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil || rec.Handle == "" {
			s.logger.Warnw("Skipping corrupt alert record",
				logger.FieldSlug, slug,
				"index", i,
				logger.FieldError, err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// Clear implements store.AlertStore.
func (s *Store) Clear(ctx context.Context, slug listing.AlertSlug) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.alertsKey(slug))
		pipe.SRem(ctx, s.indexKey(), string(slug))
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "clear alert history for %s", slug)
	}
	return nil
}

// Slugs implements store.AlertStore.
func (s *Store) Slugs(ctx context.Context) ([]listing.AlertSlug, error) {
	members, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "query alert slugs")
	}
	sort.Strings(members)

	slugs := make([]listing.AlertSlug, len(members))
	for i, m := range members {
		slugs[i] = listing.AlertSlug(m)
	}
	return slugs, nil
}

var (
	_ store.SnapshotStore = (*Store)(nil)
	_ store.AlertStore    = (*Store)(nil)
)
