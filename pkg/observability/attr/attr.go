// Package attr provides slog attribute helpers used across modules.
package attr

import (
	"context"
	"log/slog"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

type ctxKey string

// CorrelationIDKey is the context key under which the correlation id is stored.
const CorrelationIDKey ctxKey = "correlation_id"

// WithCorrelationID returns a copy of ctx carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationID returns the correlation id stored in ctx, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}

// ExtractCorrelationID returns the correlation id in ctx as an attribute.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationID(ctx))
}

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Float64(key string, value float64) slog.Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

// Error renders err under the "error" key.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func EventID(key string, id sharedtypes.EventID) slog.Attr { return slog.String(key, string(id)) }

func BoutID(key string, id sharedtypes.BoutID) slog.Attr { return slog.String(key, string(id)) }

func UserID(key string, id sharedtypes.UserID) slog.Attr { return slog.String(key, string(id)) }
