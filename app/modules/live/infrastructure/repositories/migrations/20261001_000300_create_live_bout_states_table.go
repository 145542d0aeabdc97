package livemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating live_bout_states table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS live_bout_states (
					bout_id TEXT PRIMARY KEY REFERENCES bouts(id) ON DELETE CASCADE,
					event_id TEXT NOT NULL,
					phase TEXT NOT NULL DEFAULT 'SCHEDULED'
						CHECK (phase IN ('SCHEDULED', 'ROUND_LIVE', 'ROUND_BREAK', 'COMPLETE')),
					round INTEGER NOT NULL DEFAULT 0 CHECK (round >= 0),
					scheduled_rounds INTEGER NOT NULL CHECK (scheduled_rounds > 0),
					window_round INTEGER,
					window_closes_at TIMESTAMPTZ,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CHECK ((window_round IS NULL) = (window_closes_at IS NULL))
				);
				CREATE INDEX IF NOT EXISTS idx_live_bout_states_event ON live_bout_states(event_id);
				CREATE INDEX IF NOT EXISTS idx_live_bout_states_open_windows
					ON live_bout_states(window_closes_at) WHERE window_closes_at IS NOT NULL;
			`); err != nil {
				return fmt.Errorf("failed to create live_bout_states table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping live_bout_states table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS live_bout_states;`); err != nil {
				return fmt.Errorf("failed to drop live_bout_states table: %w", err)
			}
			return nil
		})
	})
}
