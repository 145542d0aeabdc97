package pickdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a pick does not exist.
var ErrNotFound = fmt.Errorf("pick %w", sharedtypes.ErrNotFound)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new pick repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Upsert(ctx context.Context, db bun.IDB, pick *Pick) (*Pick, error) {
	db = r.resolveDB(db)
	pick.Status = sharedtypes.PickStatusActive
	pick.Score = nil
	pick.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(pick).
		On("CONFLICT (user_id, bout_id) DO UPDATE").
		Set("corner = EXCLUDED.corner").
		Set("predicted_method = EXCLUDED.predicted_method").
		Set("predicted_round = EXCLUDED.predicted_round").
		Set("status = EXCLUDED.status").
		Set("score = NULL").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert pick: %w", err)
	}
	return pick, nil
}

func (r *Impl) Get(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) (*Pick, error) {
	db = r.resolveDB(db)
	pick := new(Pick)
	err := db.NewSelect().
		Model(pick).
		Where("p.user_id = ?", userID).
		Where("p.bout_id = ?", boutID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pick: %w", err)
	}
	return pick, nil
}

func (r *Impl) Delete(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*Pick)(nil)).
		Where("user_id = ?", userID).
		Where("bout_id = ?", boutID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete pick: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) ListForUserAndBouts(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutIDs []sharedtypes.BoutID) ([]Pick, error) {
	if len(boutIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var picks []Pick
	err := db.NewSelect().
		Model(&picks).
		Where("p.user_id = ?", userID).
		Where("p.bout_id IN (?)", bun.In(boutIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for user: %w", err)
	}
	return picks, nil
}

func (r *Impl) ListForBout(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) ([]Pick, error) {
	db = r.resolveDB(db)
	var picks []Pick
	err := db.NewSelect().
		Model(&picks).
		Where("p.bout_id = ?", boutID).
		Order("p.user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks for bout: %w", err)
	}
	return picks, nil
}

func (r *Impl) VoidForBout(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (int, error) {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Pick)(nil)).
		Set("status = ?", sharedtypes.PickStatusVoided).
		Set("score = NULL").
		Set("updated_at = ?", time.Now()).
		Where("bout_id = ?", boutID).
		Where("status = ?", sharedtypes.PickStatusActive).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to void picks: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}

func (r *Impl) UpdateGrade(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID, status sharedtypes.PickStatus, score *int) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Pick)(nil)).
		Set("status = ?", status).
		Set("score = ?", score).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("bout_id = ?", boutID).
		Where("status <> ?", sharedtypes.PickStatusVoided).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update pick grade: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
