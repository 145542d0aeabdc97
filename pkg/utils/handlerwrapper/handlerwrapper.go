// Package handlerwrapper adapts typed payload handlers to watermill handler funcs.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

// CtxKeyTopic holds the topic the current message was received on.
const CtxKeyTopic ctxKey = "topic"

// Result is one outgoing message produced by a handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// ErrMalformedPayload marks payloads that can never be processed. The
// wrapper acknowledges them instead of letting the retry middleware spin.
var ErrMalformedPayload = errors.New("malformed payload")

// Validator is implemented by payloads that can check their own shape.
type Validator interface {
	Validate() error
}

// WrapTransformingTyped decodes the message into T, runs handler and turns
// the returned Results into outgoing messages. Decode and validation
// failures are logged and acknowledged. Handler errors are returned so the
// router middleware can retry them, unless they wrap ErrMalformedPayload.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	opMetrics metrics.OperationMetrics,
	handler func(context.Context, *T) ([]Result, error),
) message.HandlerFunc {
	if opMetrics == nil {
		opMetrics = metrics.NewNoop()
	}

	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := msg.Context()
		correlationID := middleware.MessageCorrelationID(msg)
		ctx = attr.WithCorrelationID(ctx, correlationID)
		if topic := msg.Metadata.Get(eventbus.TopicMetadataKey); topic != "" {
			ctx = context.WithValue(ctx, CtxKeyTopic, topic)
		}

		var span trace.Span
		if tracer != nil {
			ctx, span = tracer.Start(ctx, handlerName, trace.WithAttributes(
				attribute.String("handler", handlerName),
				attribute.String("message_id", msg.UUID),
			))
			defer span.End()
		}

		start := time.Now()
		opMetrics.RecordOperationAttempt(ctx, handlerName, "handler")
		defer func() {
			opMetrics.RecordOperationDuration(ctx, handlerName, "handler", time.Since(start))
		}()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.WarnContext(ctx, "Dropping undecodable message",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			opMetrics.RecordOperationFailure(ctx, handlerName, "handler")
			return nil, nil
		}

		if v, ok := any(payload).(Validator); ok {
			if err := v.Validate(); err != nil {
				logger.WarnContext(ctx, "Dropping invalid message",
					attr.ExtractCorrelationID(ctx),
					attr.String("handler", handlerName),
					attr.String("message_id", msg.UUID),
					attr.Error(err),
				)
				opMetrics.RecordOperationFailure(ctx, handlerName, "handler")
				return nil, nil
			}
		}

		results, err := handler(ctx, payload)
		if err != nil {
			if errors.Is(err, ErrMalformedPayload) {
				logger.WarnContext(ctx, "Handler rejected message as malformed",
					attr.ExtractCorrelationID(ctx),
					attr.String("handler", handlerName),
					attr.Error(err),
				)
				opMetrics.RecordOperationFailure(ctx, handlerName, "handler")
				return nil, nil
			}
			if span != nil {
				span.RecordError(err)
			}
			opMetrics.RecordOperationFailure(ctx, handlerName, "handler")
			return nil, fmt.Errorf("%s: %w", handlerName, err)
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := eventbus.NewMessage(ctx, r.Topic, r.Payload)
			if err != nil {
				opMetrics.RecordOperationFailure(ctx, handlerName, "handler")
				return nil, err
			}
			for k, v := range r.Metadata {
				m.Metadata.Set(k, v)
			}
			out = append(out, m)
		}

		opMetrics.RecordOperationSuccess(ctx, handlerName, "handler")
		return out, nil
	}
}
