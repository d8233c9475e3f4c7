package middleware

import (
	"context"

	"stayride/internal/app/commands"
	"stayride/internal/app/outbox"
)

// OutboxFlush flushes staged events once the wrapped command succeeded.
// Place it outside Transaction so events only leave after commit.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
