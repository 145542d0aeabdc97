package scorecardmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating round_scores table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS round_scores (
					user_id TEXT NOT NULL,
					bout_id TEXT NOT NULL REFERENCES bouts(id) ON DELETE CASCADE,
					round INTEGER NOT NULL CHECK (round > 0),
					red_score INTEGER NOT NULL CHECK (red_score BETWEEN 0 AND 10),
					blue_score INTEGER NOT NULL CHECK (blue_score BETWEEN 0 AND 10),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (user_id, bout_id, round)
				);
				CREATE INDEX IF NOT EXISTS idx_round_scores_bout_round ON round_scores(bout_id, round);
			`); err != nil {
				return fmt.Errorf("failed to create round_scores table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping round_scores table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS round_scores;`); err != nil {
				return fmt.Errorf("failed to drop round_scores table: %w", err)
			}
			return nil
		})
	})
}
