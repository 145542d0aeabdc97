package scorecard

import (
	"context"
	"fmt"
	"sync"

	scorecardservice "github.com/Black-And-White-Club/ringside/app/modules/scorecard/application"
	scorecardhttp "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/http"
	scorecarddb "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/jwt"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the scorecard module. It consumes no topics; scoring
// arrives over HTTP and is gated by the live module.
type Module struct {
	ScorecardService scorecardservice.Service
	HTTP             *scorecardhttp.Handlers
	cancelFunc       context.CancelFunc
	observability    *observability.Observability
}

// NewScorecardModule creates and initializes a new scorecard module.
func NewScorecardModule(
	ctx context.Context,
	obs *observability.Observability,
	eventBus eventbus.EventBus,
	db *bun.DB,
	bouts scorecardservice.BoutLookup,
	gate scorecardservice.ScoringGate,
	tokens jwt.Service,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "scorecard.NewScorecardModule initializing")

	opMetrics, err := metrics.New(obs.Meter("scorecard"), "scorecard")
	if err != nil {
		return nil, fmt.Errorf("failed to create scorecard metrics: %w", err)
	}

	service := scorecardservice.NewScorecardService(scorecarddb.NewRepository(db), bouts, gate, eventBus, logger, opMetrics, tracer, db)

	return &Module{
		ScorecardService: service,
		HTTP:             scorecardhttp.NewHandlers(service, tokens, logger, tracer),
		observability:    obs,
	}, nil
}

// RegisterRoutes mounts the module's HTTP routes.
func (m *Module) RegisterRoutes(r chi.Router) {
	m.HTTP.Register(r)
}

// Run blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting scorecard module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Scorecard module goroutine stopped")
}

// Close shuts down the scorecard module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.observability.Provider.Logger.Info("Scorecard module stopped")
	return nil
}
