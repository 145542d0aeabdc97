package pickmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating picks table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS picks (
					user_id TEXT NOT NULL,
					bout_id TEXT NOT NULL REFERENCES bouts(id) ON DELETE CASCADE,
					corner TEXT NOT NULL CHECK (corner IN ('red', 'blue')),
					predicted_method TEXT,
					predicted_round INTEGER CHECK (predicted_round IS NULL OR predicted_round > 0),
					status TEXT NOT NULL DEFAULT 'active'
						CHECK (status IN ('active', 'voided', 'graded')),
					score SMALLINT CHECK (score IS NULL OR score IN (0, 1)),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (user_id, bout_id)
				);
				CREATE INDEX IF NOT EXISTS idx_picks_bout_corner ON picks(bout_id, corner);
			`); err != nil {
				return fmt.Errorf("failed to create picks table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping picks table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS picks;`); err != nil {
				return fmt.Errorf("failed to drop picks table: %w", err)
			}
			return nil
		})
	})
}
