package communitydb

import (
	"context"
	"fmt"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// CornerCount is one row of the grouped pick count.
type CornerCount struct {
	BoutID sharedtypes.BoutID `bun:"bout_id"`
	Corner sharedtypes.Corner `bun:"corner"`
	Count  int                `bun:"count"`
}

// Impl implements Repository using Bun over the picks table.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new community repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// CountByCorner counts picks of every status, voided included.
func (r *Impl) CountByCorner(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]CornerCount, error) {
	if len(boutIDs) == 0 {
		return nil, nil
	}

	var rows []CornerCount
	err := r.resolveDB(db).NewSelect().
		TableExpr("picks AS p").
		ColumnExpr("p.bout_id").
		ColumnExpr("p.corner").
		ColumnExpr("count(*) AS count").
		Where("p.bout_id IN (?)", bun.In(boutIDs)).
		Where("p.corner IS NOT NULL").
		GroupExpr("p.bout_id, p.corner").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to count picks by corner: %w", err)
	}
	return rows, nil
}
