package scorecardservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	scorecarddomain "github.com/Black-And-White-Club/ringside/app/modules/scorecard/domain"
	scorecarddb "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	liveevents "github.com/Black-And-White-Club/ringside/pkg/events/live"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/operation"
	"github.com/Black-And-White-Club/ringside/pkg/utils/results"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

var _ Service = (*ScorecardService)(nil)

// ScorecardService implements the Service interface.
type ScorecardService struct {
	repo      scorecarddb.Repository
	bouts     BoutLookup
	gate      ScoringGate
	publisher message.Publisher
	logger    *slog.Logger
	telemetry operation.Telemetry
	db        *bun.DB
}

// NewScorecardService creates a new ScorecardService. publisher may be nil.
func NewScorecardService(
	repo scorecarddb.Repository,
	bouts BoutLookup,
	gate ScoringGate,
	publisher message.Publisher,
	logger *slog.Logger,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *ScorecardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScorecardService{
		repo:      repo,
		bouts:     bouts,
		gate:      gate,
		publisher: publisher,
		logger:    logger,
		telemetry: operation.Telemetry{
			Service: "ScorecardService",
			Logger:  logger,
			Metrics: opMetrics,
			Tracer:  tracer,
		},
		db: db,
	}
}

// SubmitRoundScore checks the window before the score so a late viewer
// learns the round is over rather than that their score is off.
func (s *ScorecardService) SubmitRoundScore(ctx context.Context, req SubmitRequest) (*RoundUpdate, error) {
	update, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "SubmitRoundScore", req.BoutID.String(), func(ctx context.Context) (results.OperationResult[*RoundUpdate, error], error) {
		open, err := s.gate.IsScoringOpen(ctx, req.BoutID, req.Round)
		if err != nil {
			return results.OperationResult[*RoundUpdate, error]{}, fmt.Errorf("failed to check scoring window: %w", err)
		}
		if !open {
			return results.FailureResult[*RoundUpdate, error](fmt.Errorf("%w: bout %s round %d", sharedtypes.ErrWindowClosed, req.BoutID, req.Round)), nil
		}
		if err := scorecarddomain.ValidateScore(req.RedScore, req.BlueScore); err != nil {
			return results.FailureResult[*RoundUpdate, error](err), nil
		}

		bc, err := s.bouts.GetBoutContext(ctx, req.BoutID)
		if err != nil {
			if sharedtypes.IsDomainError(err) {
				return results.FailureResult[*RoundUpdate, error](err), nil
			}
			return results.OperationResult[*RoundUpdate, error]{}, err
		}

		return operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (results.OperationResult[*RoundUpdate, error], error) {
			if err := s.repo.Upsert(ctx, db, &scorecarddb.RoundScore{
				UserID:    req.UserID,
				BoutID:    req.BoutID,
				Round:     req.Round,
				RedScore:  req.RedScore,
				BlueScore: req.BlueScore,
			}); err != nil {
				return results.OperationResult[*RoundUpdate, error]{}, err
			}

			scores, err := s.repo.ListForRound(ctx, db, req.BoutID, req.Round)
			if err != nil {
				return results.OperationResult[*RoundUpdate, error]{}, err
			}
			return results.SuccessResult[*RoundUpdate, error](&RoundUpdate{
				EventID: bc.EventID,
				BoutID:  req.BoutID,
				Summary: scorecarddomain.Summarize(req.Round, submissions(scores)),
			}), nil
		})
	}))
	if err != nil {
		return nil, err
	}

	s.publishSummary(ctx, update)
	return update, nil
}

func (s *ScorecardService) publishSummary(ctx context.Context, u *RoundUpdate) {
	if s.publisher == nil {
		return
	}
	err := eventbus.PublishScoped(ctx, s.publisher, liveevents.RoundSummaryUpdatedV1, u.EventID.String(), &liveevents.RoundSummaryUpdatedPayloadV1{
		EventID:         u.EventID,
		BoutID:          u.BoutID,
		Round:           u.Summary.Round,
		SubmissionCount: u.Summary.SubmissionCount,
		MeanRed:         u.Summary.MeanRed,
		MeanBlue:        u.Summary.MeanBlue,
		Winner:          u.Summary.Winner,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish round summary",
			attr.ExtractCorrelationID(ctx),
			attr.BoutID("bout_id", u.BoutID),
			attr.Int("round", u.Summary.Round),
			attr.Error(err),
		)
	}
}

func (s *ScorecardService) GetEventScorecards(ctx context.Context, eventID sharedtypes.EventID) ([]scorecarddomain.BoutScorecard, error) {
	sheet, err := s.GetEventSheet(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return sheet.Scorecards, nil
}

func (s *ScorecardService) GetEventSheet(ctx context.Context, eventID sharedtypes.EventID) (*EventSheet, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GetEventSheet", eventID.String(), func(ctx context.Context) (results.OperationResult[*EventSheet, error], error) {
		card, err := s.bouts.ListEventBouts(ctx, eventID)
		if err != nil {
			if sharedtypes.IsDomainError(err) {
				return results.FailureResult[*EventSheet, error](err), nil
			}
			return results.OperationResult[*EventSheet, error]{}, err
		}

		ids := make([]sharedtypes.BoutID, 0, len(card.Bouts))
		for _, bc := range card.Bouts {
			ids = append(ids, bc.Bout.ID)
		}
		scores, err := s.repo.ListForBouts(ctx, nil, ids)
		if err != nil {
			return results.OperationResult[*EventSheet, error]{}, err
		}

		return results.SuccessResult[*EventSheet, error](&EventSheet{
			Card:        *card,
			Scorecards:  buildScorecards(ids, scores),
			Submissions: scores,
		}), nil
	}))
}

// buildScorecards groups scores by bout and round and summarizes each
// round. Bouts without scores still get an empty scorecard.
func buildScorecards(boutIDs []sharedtypes.BoutID, scores []scorecarddb.RoundScore) []scorecarddomain.BoutScorecard {
	byBout := make(map[sharedtypes.BoutID]map[int][]scorecarddomain.Submission, len(boutIDs))
	for _, sc := range scores {
		rounds, ok := byBout[sc.BoutID]
		if !ok {
			rounds = make(map[int][]scorecarddomain.Submission)
			byBout[sc.BoutID] = rounds
		}
		rounds[sc.Round] = append(rounds[sc.Round], scorecarddomain.Submission{Red: sc.RedScore, Blue: sc.BlueScore})
	}

	cards := make([]scorecarddomain.BoutScorecard, 0, len(boutIDs))
	for _, id := range boutIDs {
		rounds := byBout[id]
		numbers := make([]int, 0, len(rounds))
		for n := range rounds {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)

		summaries := make([]scorecarddomain.RoundSummary, 0, len(numbers))
		for _, n := range numbers {
			summaries = append(summaries, scorecarddomain.Summarize(n, rounds[n]))
		}
		cards = append(cards, scorecarddomain.Cumulative(id, summaries))
	}
	return cards
}

func submissions(scores []scorecarddb.RoundScore) []scorecarddomain.Submission {
	out := make([]scorecarddomain.Submission, len(scores))
	for i, sc := range scores {
		out[i] = scorecarddomain.Submission{Red: sc.RedScore, Blue: sc.BlueScore}
	}
	return out
}
