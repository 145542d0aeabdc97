package community

import (
	"context"
	"fmt"
	"sync"
	"time"

	communityservice "github.com/Black-And-White-Club/ringside/app/modules/community/application"
	communitycache "github.com/Black-And-White-Club/ringside/app/modules/community/infrastructure/cache"
	communityhttp "github.com/Black-And-White-Club/ringside/app/modules/community/infrastructure/http"
	communitydb "github.com/Black-And-White-Club/ringside/app/modules/community/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the community module.
type Module struct {
	CommunityService communityservice.Service
	HTTP             *communityhttp.Handlers
	cancelFunc       context.CancelFunc
	observability    *observability.Observability
}

// NewCommunityModule creates the community module. The percentage cache
// lives in a JetStream KV bucket when eventBus is set.
func NewCommunityModule(
	ctx context.Context,
	obs *observability.Observability,
	eventBus eventbus.EventBus,
	db *bun.DB,
	cfg communityservice.Config,
	cacheTTL time.Duration,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "community.NewCommunityModule initializing")

	opMetrics, err := metrics.New(obs.Meter("community"), "community")
	if err != nil {
		return nil, fmt.Errorf("failed to create community metrics: %w", err)
	}

	var cache communitycache.Cache = communitycache.NoopCache{}
	if eventBus != nil {
		kv, err := eventBus.KeyValue(ctx, communitycache.Bucket, cacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open community cache: %w", err)
		}
		cache = communitycache.NewKVCache(kv)
	}

	service := communityservice.NewCommunityService(communitydb.NewRepository(db), cache, cfg, logger, opMetrics, tracer)

	return &Module{
		CommunityService: service,
		HTTP:             communityhttp.NewHandlers(service, logger, tracer),
		observability:    obs,
	}, nil
}

// RegisterRoutes mounts the module's HTTP routes.
func (m *Module) RegisterRoutes(r chi.Router) {
	m.HTTP.Register(r)
}

// Run blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
}

// Close shuts down the community module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.observability.Provider.Logger.Info("Community module stopped")
	return nil
}
