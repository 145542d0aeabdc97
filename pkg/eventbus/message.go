package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// NewMessage marshals payload as JSON into a message addressed to topic and
// carrying the correlation id found in ctx.
func NewMessage(ctx context.Context, topic string, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(TopicMetadataKey, topic)

	correlationID := attr.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)

	return msg, nil
}

// ScopedTopic appends a scope id to a base topic, producing subjects like
// "live.status.updated.v1.<eventID>" so consumers can subscribe to one
// event or use a trailing wildcard for all of them.
func ScopedTopic(baseTopic, scope string) string {
	return baseTopic + "." + scope
}

// Wildcard returns the subject matching every scope of baseTopic.
func Wildcard(baseTopic string) string {
	return baseTopic + ".*"
}

// ScopeFromTopic returns the scope suffix of a scoped topic.
func ScopeFromTopic(baseTopic, topic string) (string, bool) {
	prefix := baseTopic + "."
	if !strings.HasPrefix(topic, prefix) || len(topic) == len(prefix) {
		return "", false
	}
	return topic[len(prefix):], true
}

// PublishScoped publishes payload to baseTopic scoped by scope.
func PublishScoped(ctx context.Context, pub message.Publisher, baseTopic, scope string, payload any) error {
	if scope == "" {
		return fmt.Errorf("scope cannot be empty for scoped publish to %s", baseTopic)
	}
	topic := ScopedTopic(baseTopic, scope)
	msg, err := NewMessage(ctx, topic, payload)
	if err != nil {
		return err
	}
	return pub.Publish(topic, msg)
}
