package eventmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating events, bouts and bout_results tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS events (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					location TEXT NOT NULL DEFAULT '',
					scheduled_start TIMESTAMPTZ NOT NULL,
					picks_locked_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create events table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS bouts (
					id TEXT PRIMARY KEY,
					event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
					position INTEGER NOT NULL,
					red_fighter TEXT NOT NULL,
					blue_fighter TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'scheduled'
						CHECK (status IN ('scheduled', 'canceled', 'replaced', 'completed')),
					scheduled_rounds INTEGER CHECK (scheduled_rounds IS NULL OR scheduled_rounds > 0),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_bouts_event_position ON bouts(event_id, position);
			`); err != nil {
				return fmt.Errorf("failed to create bouts table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS bout_results (
					bout_id TEXT PRIMARY KEY REFERENCES bouts(id) ON DELETE CASCADE,
					winner_corner TEXT NOT NULL
						CHECK (winner_corner IN ('red', 'blue', 'draw', 'no_contest')),
					method TEXT NOT NULL DEFAULT '',
					round INTEGER NOT NULL DEFAULT 0,
					result_time TEXT NOT NULL DEFAULT '',
					recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create bout_results table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping bout_results, bouts and events tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS bout_results;
				DROP TABLE IF EXISTS bouts;
				DROP TABLE IF EXISTS events;
			`); err != nil {
				return fmt.Errorf("failed to drop event tables: %w", err)
			}
			return nil
		})
	})
}
