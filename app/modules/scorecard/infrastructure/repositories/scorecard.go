package scorecarddb

import (
	"context"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new scorecard repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Upsert(ctx context.Context, db bun.IDB, score *RoundScore) error {
	db = r.resolveDB(db)
	score.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(score).
		On("CONFLICT (user_id, bout_id, round) DO UPDATE").
		Set("red_score = EXCLUDED.red_score").
		Set("blue_score = EXCLUDED.blue_score").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert round score: %w", err)
	}
	return nil
}

func (r *Impl) ListForRound(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID, round int) ([]RoundScore, error) {
	db = r.resolveDB(db)
	var scores []RoundScore
	err := db.NewSelect().
		Model(&scores).
		Where("rs.bout_id = ?", boutID).
		Where("rs.round = ?", round).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list round scores: %w", err)
	}
	return scores, nil
}

func (r *Impl) ListForBouts(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]RoundScore, error) {
	if len(boutIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var scores []RoundScore
	err := db.NewSelect().
		Model(&scores).
		Where("rs.bout_id IN (?)", bun.In(boutIDs)).
		Order("rs.bout_id ASC", "rs.round ASC", "rs.user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores for bouts: %w", err)
	}
	return scores, nil
}
