package communityservice

import (
	"context"

	communitydomain "github.com/Black-And-White-Club/ringside/app/modules/community/domain"
	communitycache "github.com/Black-And-White-Club/ringside/app/modules/community/infrastructure/cache"
	communitydb "github.com/Black-And-White-Club/ringside/app/modules/community/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Community Repo
// ------------------------

type FakeCommunityRepo struct {
	trace []string

	CountByCornerFunc func(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]communitydb.CornerCount, error)
}

func NewFakeCommunityRepo() *FakeCommunityRepo {
	return &FakeCommunityRepo{trace: []string{}}
}

func (f *FakeCommunityRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeCommunityRepo) CountByCorner(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]communitydb.CornerCount, error) {
	f.trace = append(f.trace, "CountByCorner")
	if f.CountByCornerFunc != nil {
		return f.CountByCornerFunc(ctx, db, boutIDs)
	}
	return nil, nil
}

// ------------------------
// Fake Cache
// ------------------------

type FakeCache struct {
	entries     map[sharedtypes.BoutID]communitydomain.Percentages
	revs        map[sharedtypes.BoutID]uint64
	seq         uint64
	GetErr      error
	PutErr      error
	Invalidated []sharedtypes.BoutID
}

func NewFakeCache() *FakeCache {
	return &FakeCache{
		entries: map[sharedtypes.BoutID]communitydomain.Percentages{},
		revs:    map[sharedtypes.BoutID]uint64{},
	}
}

func (f *FakeCache) GetMany(ctx context.Context, boutIDs []sharedtypes.BoutID) (communitycache.Snapshot, error) {
	if f.GetErr != nil {
		return communitycache.Snapshot{}, f.GetErr
	}
	snap := communitycache.Snapshot{
		Hits:      map[sharedtypes.BoutID]communitydomain.Percentages{},
		Revisions: map[sharedtypes.BoutID]uint64{},
	}
	for _, id := range boutIDs {
		if p, ok := f.entries[id]; ok {
			snap.Hits[id] = p
			continue
		}
		snap.Revisions[id] = f.revs[id]
	}
	return snap, nil
}

func (f *FakeCache) PutMany(ctx context.Context, entries []communitydomain.Percentages, seen map[sharedtypes.BoutID]uint64) error {
	if f.PutErr != nil {
		return f.PutErr
	}
	for _, p := range entries {
		if f.revs[p.BoutID] != seen[p.BoutID] {
			continue
		}
		f.seq++
		f.revs[p.BoutID] = f.seq
		f.entries[p.BoutID] = p
	}
	return nil
}

func (f *FakeCache) Invalidate(ctx context.Context, boutIDs ...sharedtypes.BoutID) error {
	f.Invalidated = append(f.Invalidated, boutIDs...)
	for _, id := range boutIDs {
		f.seq++
		f.revs[id] = f.seq
		delete(f.entries, id)
	}
	return nil
}
