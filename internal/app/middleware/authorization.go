package middleware

import (
	"context"

	"stayride/internal/app/commands"
	"stayride/internal/app/queries"
	"stayride/internal/domain/cancellation"
	"stayride/internal/domain/shared/rules"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// ActorAuthorizer refuses actor-scoped messages that carry no identity or an
// unknown role. Ownership checks stay in the handlers, next to the data.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(_ context.Context, message any) error {
	scoped, ok := message.(commands.ActorScoped)
	if !ok {
		return nil
	}
	actor := scoped.Principal()
	if actor.ID == "" {
		return rules.New(rules.KindNotAllowed, "actor identity missing")
	}
	if role := cancellation.Role(actor.Role); !role.Valid() || role == cancellation.RoleSystem {
		return rules.Newf(rules.KindNotAllowed, "role %q not accepted", actor.Role)
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
