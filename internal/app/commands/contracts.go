package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command is a state change routed through the bus; Key selects the handler.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// HandlerFunc lets a method value serve as a handler, e.g. when one type
// answers several command keys.
type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// Bus dispatches commands, usually through a middleware chain.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch sends cmd through bus and narrows the result to R. A handler that
// returns nil yields the zero R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	switch {
	case err != nil:
		return zero, err
	case res == nil:
		return zero, nil
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, cmd.Key(), res)
	}
	return value, nil
}

// Actor is who issues a command, as asserted by the upstream gateway.
type Actor struct {
	ID   string
	Role string
}

// ActorScoped is implemented by commands and queries that act on behalf of someone.
type ActorScoped interface {
	Command
	Principal() Actor
}
