package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/ringside/app/modules/community"
	communityservice "github.com/Black-And-White-Club/ringside/app/modules/community/application"
	"github.com/Black-And-White-Club/ringside/app/modules/event"
	"github.com/Black-And-White-Club/ringside/app/modules/live"
	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	livedomain "github.com/Black-And-White-Club/ringside/app/modules/live/domain"
	"github.com/Black-And-White-Club/ringside/app/modules/pick"
	"github.com/Black-And-White-Club/ringside/app/modules/realtime"
	realtimews "github.com/Black-And-White-Club/ringside/app/modules/realtime/infrastructure/websocket"
	"github.com/Black-And-White-Club/ringside/app/modules/scorecard"
	"github.com/Black-And-White-Club/ringside/config"
	"github.com/Black-And-White-Club/ringside/db/bundb"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/httpserver"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// App owns shared infrastructure and every module.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	Logger        *slog.Logger
	DB            *bundb.DBService
	EventBus      eventbus.EventBus
	Router        *message.Router
	HTTP          *httpserver.Server
	Clock         clockwork.Clock

	EventModule     *event.Module
	CommunityModule *community.Module
	PickModule      *pick.Module
	LiveModule      *live.Module
	ScorecardModule *scorecard.Module
	RealtimeModule  *realtime.Module

	wg sync.WaitGroup
}

type module interface {
	RegisterRoutes(r chi.Router)
	Run(ctx context.Context, wg *sync.WaitGroup)
	Close() error
}

// Initialize connects to Postgres and NATS and builds the modules in
// dependency order.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, obs *observability.Observability) error {
	app.Config = cfg
	app.Observability = obs
	app.Logger = obs.Provider.Logger
	if app.Clock == nil {
		app.Clock = clockwork.NewRealClock()
	}

	db, err := bundb.NewBunDBService(ctx, cfg.Postgres, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{
		URL:      cfg.NATS.URL,
		NKeySeed: cfg.NATS.NKeySeed,
		Name:     "ringside",
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = bus
	if err := bus.EnsureStreams(ctx); err != nil {
		return fmt.Errorf("failed to provision streams: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(app.Logger))
	if err != nil {
		return fmt.Errorf("failed to create message router: %w", err)
	}
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			Logger:          watermill.NewSlogLogger(app.Logger),
		}.Middleware,
	)
	metrics.NewPrometheusMetricsBuilder(obs.Provider.PrometheusRegistry, "ringside", "router").AddPrometheusRouterMetrics(router)
	app.Router = router

	if err := app.initModules(ctx); err != nil {
		return err
	}

	app.HTTP = httpserver.New(cfg.HTTP.Address, obs.Provider.PrometheusRegistry, app.Logger)
	limiter := httpserver.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)
	app.HTTP.Router.Group(func(r chi.Router) {
		r.Use(httpserver.CORSMiddleware(cfg.HTTP.AllowedOrigins))
		r.Use(httpserver.RateLimitMiddleware(limiter))
		for _, m := range app.modules() {
			m.RegisterRoutes(r)
		}
	})

	app.Logger.InfoContext(ctx, "Application initialized")
	return nil
}

func (app *App) initModules(ctx context.Context) error {
	cfg := app.Config
	obs := app.Observability
	db := app.DB.GetDB()
	tokens := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer)

	eventModule, err := event.NewEventModule(ctx, obs, app.EventBus, app.Router, db, cfg.Postgres.DSN, app.Clock, tokens)
	if err != nil {
		return fmt.Errorf("failed to initialize event module: %w", err)
	}
	app.EventModule = eventModule

	communityModule, err := community.NewCommunityModule(ctx, obs, app.EventBus, db, communityservice.Config{
		MinSampleSize:        cfg.Community.MinSampleSize,
		RetryMaxAttempts:     cfg.Community.RetryMaxAttempts,
		RetryInitialInterval: cfg.Community.RetryInitialInterval,
	}, cfg.Community.CacheTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize community module: %w", err)
	}
	app.CommunityModule = communityModule

	pickModule, err := pick.NewPickModule(ctx, obs, app.EventBus, app.Router, db,
		eventModule.EventService, communityModule.CommunityService, app.Clock, tokens)
	if err != nil {
		return fmt.Errorf("failed to initialize pick module: %w", err)
	}
	app.PickModule = pickModule

	liveModule, err := live.NewLiveModule(ctx, obs, app.EventBus, app.Router, db, eventModule.EventService, app.Clock, live.Config{
		Tracker: liveservice.Config{
			GracePeriod: cfg.Live.GracePeriod,
			Polling: livedomain.PollingPolicy{
				Hot:     cfg.Live.HotPollInterval,
				Idle:    cfg.Live.IdlePollInterval,
				Default: cfg.Live.DefaultPollInterval,
			},
		},
		ReconcileInterval: cfg.Live.ReconcileInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize live module: %w", err)
	}
	app.LiveModule = liveModule

	scorecardModule, err := scorecard.NewScorecardModule(ctx, obs, app.EventBus, db, eventModule.EventService, liveModule.Tracker, tokens)
	if err != nil {
		return fmt.Errorf("failed to initialize scorecard module: %w", err)
	}
	app.ScorecardModule = scorecardModule

	wsConfig := realtimews.DefaultConfig()
	wsConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	realtimeModule, err := realtime.NewRealtimeModule(ctx, obs, app.EventBus, app.Router, liveModule.Tracker, tokens, wsConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize realtime module: %w", err)
	}
	app.RealtimeModule = realtimeModule

	return nil
}

func (app *App) modules() []module {
	var out []module
	if app.EventModule != nil {
		out = append(out, app.EventModule)
	}
	if app.CommunityModule != nil {
		out = append(out, app.CommunityModule)
	}
	if app.PickModule != nil {
		out = append(out, app.PickModule)
	}
	if app.LiveModule != nil {
		out = append(out, app.LiveModule)
	}
	if app.ScorecardModule != nil {
		out = append(out, app.ScorecardModule)
	}
	if app.RealtimeModule != nil {
		out = append(out, app.RealtimeModule)
	}
	return out
}

// Run starts the modules, the HTTP server and the message router, and
// blocks until ctx is done or the router stops.
func (app *App) Run(ctx context.Context) error {
	for _, m := range app.modules() {
		app.wg.Add(1)
		go m.Run(ctx, &app.wg)
	}

	app.HTTP.Start()

	app.Logger.InfoContext(ctx, "Starting message router")
	if err := app.Router.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("message router stopped: %w", err)
	}
	return nil
}

// Close stops intake first, then modules, then shared infrastructure.
func (app *App) Close() error {
	var errs []error
	logger := app.Logger

	if app.HTTP != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := app.HTTP.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}

	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("router close: %w", err))
		}
	}

	modules := app.modules()
	for i := len(modules) - 1; i >= 0; i-- {
		if err := modules[i].Close(); err != nil {
			logger.Error("Module close failed", attr.Error(err))
			errs = append(errs, err)
		}
	}
	app.wg.Wait()

	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus close: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(errs...)
}
