package testutils

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	eventmigrations "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories/migrations"
	livemigrations "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/repositories/migrations"
	pickmigrations "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories/migrations"
	scorecardmigrations "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/ringside/config"
	"github.com/Black-And-White-Club/ringside/db/bundb"
	"github.com/Black-And-White-Club/ringside/integration_tests/containers"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
)

// TestEnvironment holds the containers and connections shared by an
// integration test package.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DBService     *bundb.DBService
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Logger        *slog.Logger
}

// moduleMigrations lists module migrations in dependency order.
var moduleMigrations = []struct {
	name       string
	migrations *migrate.Migrations
}{
	{"event", eventmigrations.Migrations},
	{"pick", pickmigrations.Migrations},
	{"live", livemigrations.Migrations},
	{"scorecard", scorecardmigrations.Migrations},
}

// truncateOrder lists tables children first.
var truncateOrder = []string{"round_scores", "live_bout_states", "picks", "bout_results", "bouts", "events"}

// NewTestEnvironment starts Postgres and NATS, migrates every module and
// connects the event bus.
func NewTestEnvironment() (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	pgContainer, pgConnStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}
	env.PgContainer = pgContainer

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to setup nats container: %w", err)
	}
	env.NatsContainer = natsContainer

	dbService, err := bundb.NewBunDBService(ctx, config.PostgresConfig{DSN: pgConnStr}, env.Logger)
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	env.DBService = dbService
	env.DB = dbService.GetDB()

	if err := RunMigrations(ctx, env.DB); err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{URL: natsURL, Name: "ringside-test"}, env.Logger)
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	env.EventBus = bus
	if err := bus.EnsureStreams(ctx); err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to ensure streams: %w", err)
	}

	return env, nil
}

// RunMigrations applies every module's migrations with its own bookkeeping tables.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	for _, m := range moduleMigrations {
		migrator := migrate.NewMigrator(db, m.migrations,
			migrate.WithTableName("bun_migrations_"+m.name),
			migrate.WithLocksTableName("bun_migration_locks_"+m.name),
		)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("%s: init: %w", m.name, err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("%s: migrate: %w", m.name, err)
		}
	}
	return nil
}

// Reset empties every module table.
func (env *TestEnvironment) Reset() error {
	for _, table := range truncateOrder {
		if _, err := env.DB.ExecContext(env.Ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// Cleanup tears down all resources created for testing.
func (env *TestEnvironment) Cleanup() {
	if env.CancelContext != nil {
		env.CancelContext()
	}
	if closer, ok := env.EventBus.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("Error closing EventBus: %v", err)
		}
	}
	if env.DBService != nil {
		if err := env.DBService.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if env.NatsContainer != nil {
		if err := env.NatsContainer.Terminate(ctx); err != nil {
			log.Printf("Error terminating NATS container: %v", err)
		}
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(ctx); err != nil {
			log.Printf("Error terminating Postgres container: %v", err)
		}
	}
}
