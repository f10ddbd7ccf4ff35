package store

import (
	"context"
	"log/slog"
	"time"
)

// LoggingMiddleware logs every action entering the pipeline and its result
// on the way out. Installed first, it wraps all later stages, so logged
// durations include batching holds and cache lookups.
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a logging middleware.
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{logger: logger}
}

// Name returns the middleware name.
func (m *LoggingMiddleware) Name() string { return "logging" }

// Setup is a no-op.
func (m *LoggingMiddleware) Setup(_ context.Context, _ API) error { return nil }

// Reducer wraps the continuation with entry/exit logging.
func (m *LoggingMiddleware) Reducer(_ API) func(Next) Next {
	return func(next Next) Next {
		return NextFunc(func(ctx context.Context, action Action) (any, error) {
			m.logger.Debug("dispatching action",
				"type", action.Type, "key", action.Key)

			start := time.Now()
			result, err := next.Dispatch(ctx, action)
			duration := time.Since(start)

			if err != nil {
				m.logger.Warn("action failed",
					"type", action.Type, "key", action.Key,
					"duration", duration, "error", err)
				return result, err
			}
			m.logger.Debug("action completed",
				"type", action.Type, "key", action.Key, "duration", duration)
			return result, nil
		})
	}
}
