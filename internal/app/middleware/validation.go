package middleware

import (
	"context"
	"errors"
	"fmt"

	"stayride/internal/app/commands"
	"stayride/internal/app/queries"
	"stayride/internal/domain/shared/rules"
)

// ErrInvalidMessage wraps every validation failure that is not already a rule violation.
var ErrInvalidMessage = errors.New("middleware: invalid message")

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// SelfValidator delegates to messages exposing a Validate() error method.
type SelfValidator struct{}

func (SelfValidator) Validate(_ context.Context, message any) error {
	if v, ok := message.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

func invalid(err error) error {
	if _, ok := rules.KindOf(err); ok {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, invalid(err)
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, invalid(err)
			}
			return nextFn(ctx, q)
		})
	}
}
