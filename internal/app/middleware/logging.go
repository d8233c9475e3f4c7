package middleware

import (
	"context"
	"log/slog"
	"time"

	"stayride/internal/app/commands"
	"stayride/internal/domain/shared/rules"
)

// Logging records every dispatched command with its outcome. Rule violations
// are expected outcomes and log at Info; anything else at Error.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			switch kind, isRule := rules.KindOf(err); {
			case err == nil:
				logger.DebugContext(ctx, "command handled", attrs...)
			case isRule:
				logger.InfoContext(ctx, "command refused", append(attrs, "kind", string(kind), "error", err)...)
			default:
				logger.ErrorContext(ctx, "command failed", append(attrs, "error", err)...)
			}
			return res, err
		})
	}
}
