// Package communitycache stores computed community percentages in a
// JetStream key-value bucket.
package communitycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	communitydomain "github.com/Black-And-White-Club/ringside/app/modules/community/domain"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/nats-io/nats.go/jetstream"
)

// Bucket is the KV bucket name.
const Bucket = "community_percentages"

// Cache reads and writes percentages by bout.
type Cache interface {
	GetMany(ctx context.Context, boutIDs []sharedtypes.BoutID) (Snapshot, error)
	// PutMany stores each entry only if its key is still at the revision
	// the read saw. Entries that lost to an invalidation are skipped.
	PutMany(ctx context.Context, entries []communitydomain.Percentages, seen map[sharedtypes.BoutID]uint64) error
	Invalidate(ctx context.Context, boutIDs ...sharedtypes.BoutID) error
}

// Snapshot is what one cache read saw. Revisions holds the key revision of
// every requested bout without a usable entry, zero when the key has no
// value.
type Snapshot struct {
	Hits      map[sharedtypes.BoutID]communitydomain.Percentages
	Revisions map[sharedtypes.BoutID]uint64
}

func newSnapshot(n int) Snapshot {
	return Snapshot{
		Hits:      make(map[sharedtypes.BoutID]communitydomain.Percentages, n),
		Revisions: make(map[sharedtypes.BoutID]uint64, n),
	}
}

// KVCache implements Cache over a jetstream.KeyValue. Entry expiry is the
// bucket TTL. Invalidation writes an empty value rather than deleting, so a
// reader that counted before it cannot create the key afterwards.
type KVCache struct {
	kv jetstream.KeyValue
}

// NewKVCache wraps an open bucket.
func NewKVCache(kv jetstream.KeyValue) *KVCache {
	return &KVCache{kv: kv}
}

var keyReplacer = strings.NewReplacer(" ", "_", "*", "_", ">", "_", ":", "_")

func key(boutID sharedtypes.BoutID) string {
	return "bout." + keyReplacer.Replace(string(boutID))
}

func (c *KVCache) GetMany(ctx context.Context, boutIDs []sharedtypes.BoutID) (Snapshot, error) {
	snap := newSnapshot(len(boutIDs))
	for _, id := range boutIDs {
		entry, err := c.kv.Get(ctx, key(id))
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				snap.Revisions[id] = 0
				continue
			}
			return Snapshot{}, fmt.Errorf("failed to read cached percentages for %s: %w", id, err)
		}
		var p communitydomain.Percentages
		if len(entry.Value()) == 0 || json.Unmarshal(entry.Value(), &p) != nil {
			snap.Revisions[id] = entry.Revision()
			continue
		}
		snap.Hits[id] = p
	}
	return snap, nil
}

func (c *KVCache) PutMany(ctx context.Context, entries []communitydomain.Percentages, seen map[sharedtypes.BoutID]uint64) error {
	var errs []error
	for _, p := range entries {
		data, err := json.Marshal(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if rev := seen[p.BoutID]; rev == 0 {
			_, err = c.kv.Create(ctx, key(p.BoutID), data)
		} else {
			_, err = c.kv.Update(ctx, key(p.BoutID), data, rev)
		}
		if err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
			errs = append(errs, fmt.Errorf("bout %s: %w", p.BoutID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *KVCache) Invalidate(ctx context.Context, boutIDs ...sharedtypes.BoutID) error {
	var errs []error
	for _, id := range boutIDs {
		if _, err := c.kv.Put(ctx, key(id), nil); err != nil {
			errs = append(errs, fmt.Errorf("bout %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// NoopCache never holds anything. It is used when no bus is configured.
type NoopCache struct{}

func (NoopCache) GetMany(context.Context, []sharedtypes.BoutID) (Snapshot, error) {
	return newSnapshot(0), nil
}

func (NoopCache) PutMany(context.Context, []communitydomain.Percentages, map[sharedtypes.BoutID]uint64) error {
	return nil
}

func (NoopCache) Invalidate(context.Context, ...sharedtypes.BoutID) error { return nil }
