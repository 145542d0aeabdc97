package eventdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when an event, bout or result does not exist.
var ErrNotFound = fmt.Errorf("event record %w", sharedtypes.ErrNotFound)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new event repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error) {
	db = r.resolveDB(db)
	event := new(Event)
	err := db.NewSelect().
		Model(event).
		Where("e.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *Impl) UpsertEvent(ctx context.Context, db bun.IDB, event *Event) error {
	db = r.resolveDB(db)
	event.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(event).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("location = EXCLUDED.location").
		Set("scheduled_start = EXCLUDED.scheduled_start").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}
	return nil
}

func (r *Impl) RescheduleEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID, start time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Event)(nil)).
		Set("scheduled_start = ?", start).
		Set("picks_locked_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reschedule event: %w", err)
	}
	return requireRow(result)
}

func (r *Impl) MarkPicksLocked(ctx context.Context, db bun.IDB, id sharedtypes.EventID, at time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Event)(nil)).
		Set("picks_locked_at = ?", at).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark picks locked: %w", err)
	}
	return requireRow(result)
}

func (r *Impl) GetBout(ctx context.Context, db bun.IDB, id sharedtypes.BoutID) (*Bout, error) {
	db = r.resolveDB(db)
	bout := new(Bout)
	err := db.NewSelect().
		Model(bout).
		Relation("Event").
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bout: %w", err)
	}
	return bout, nil
}

func (r *Impl) GetBoutsByEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]Bout, error) {
	db = r.resolveDB(db)
	var bouts []Bout
	err := db.NewSelect().
		Model(&bouts).
		Where("b.event_id = ?", eventID).
		Order("b.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bouts for event: %w", err)
	}
	return bouts, nil
}

func (r *Impl) GetBoutsByIDs(ctx context.Context, db bun.IDB, ids []sharedtypes.BoutID) ([]Bout, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var bouts []Bout
	err := db.NewSelect().
		Model(&bouts).
		Where("b.id IN (?)", bun.In(ids)).
		Order("b.event_id ASC", "b.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bouts by ids: %w", err)
	}
	return bouts, nil
}

func (r *Impl) UpsertBout(ctx context.Context, db bun.IDB, bout *Bout) error {
	db = r.resolveDB(db)
	if bout.Status == "" {
		bout.Status = sharedtypes.BoutStatusScheduled
	}
	bout.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(bout).
		On("CONFLICT (id) DO UPDATE").
		Set("position = EXCLUDED.position").
		Set("red_fighter = EXCLUDED.red_fighter").
		Set("blue_fighter = EXCLUDED.blue_fighter").
		Set("scheduled_rounds = EXCLUDED.scheduled_rounds").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert bout: %w", err)
	}
	return nil
}

func (r *Impl) UpdateBoutStatus(ctx context.Context, db bun.IDB, id sharedtypes.BoutID, status sharedtypes.BoutStatus) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Bout)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update bout status: %w", err)
	}
	return requireRow(result)
}

func (r *Impl) GetResult(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*Result, error) {
	db = r.resolveDB(db)
	res := new(Result)
	err := db.NewSelect().
		Model(res).
		Where("br.bout_id = ?", boutID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return res, nil
}

func (r *Impl) UpsertResult(ctx context.Context, db bun.IDB, result *Result) error {
	db = r.resolveDB(db)
	result.RecordedAt = time.Now()
	_, err := db.NewInsert().
		Model(result).
		On("CONFLICT (bout_id) DO UPDATE").
		Set("winner_corner = EXCLUDED.winner_corner").
		Set("method = EXCLUDED.method").
		Set("round = EXCLUDED.round").
		Set("result_time = EXCLUDED.result_time").
		Set("recorded_at = EXCLUDED.recorded_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert result: %w", err)
	}
	return nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
