package livedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a bout has no live snapshot yet.
var ErrNotFound = fmt.Errorf("live state %w", sharedtypes.ErrNotFound)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new live repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Get(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*BoutState, error) {
	db = r.resolveDB(db)
	state := new(BoutState)
	err := db.NewSelect().
		Model(state).
		Where("lbs.bout_id = ?", boutID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get live state: %w", err)
	}
	return state, nil
}

func (r *Impl) Upsert(ctx context.Context, db bun.IDB, state *BoutState) error {
	db = r.resolveDB(db)
	state.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(state).
		On("CONFLICT (bout_id) DO UPDATE").
		Set("phase = EXCLUDED.phase").
		Set("round = EXCLUDED.round").
		Set("scheduled_rounds = EXCLUDED.scheduled_rounds").
		Set("window_round = EXCLUDED.window_round").
		Set("window_closes_at = EXCLUDED.window_closes_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert live state: %w", err)
	}
	return nil
}

func (r *Impl) ListByBoutIDs(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]BoutState, error) {
	if len(boutIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var states []BoutState
	err := db.NewSelect().
		Model(&states).
		Where("lbs.bout_id IN (?)", bun.In(boutIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list live states: %w", err)
	}
	return states, nil
}

func (r *Impl) ListOpenWindows(ctx context.Context, db bun.IDB) ([]BoutState, error) {
	db = r.resolveDB(db)
	var states []BoutState
	err := db.NewSelect().
		Model(&states).
		Where("lbs.window_closes_at IS NOT NULL").
		Order("lbs.window_closes_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open windows: %w", err)
	}
	return states, nil
}

func (r *Impl) ClearWindow(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID, round int) (bool, error) {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*BoutState)(nil)).
		Set("window_round = NULL").
		Set("window_closes_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("bout_id = ?", boutID).
		Where("window_round = ?", round).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to clear window: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}
