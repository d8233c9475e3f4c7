package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

// ContextWithUnitOfWork stores the provided unit of work in context.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	val := ctx.Value(ctxKey{})
	if val == nil {
		return nil, false
	}
	unit, ok := val.(UnitOfWork)
	return unit, ok
}

// Enter returns the unit already bound to ctx, or begins one. The returned
// finish func is a no-op for borrowed units; for owned units it commits when
// passed a nil error and rolls back otherwise.
func Enter(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, func(error) error, error) {
	if unit, ok := FromContext(ctx); ok {
		return unit, ctx, func(err error) error { return err }, nil
	}
	if factory == nil {
		return nil, ctx, nil, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = ContextWithUnitOfWork(execCtx, unit)
	finish := func(err error) error {
		if err != nil || opts.ReadOnly {
			_ = unit.Rollback(execCtx)
			return err
		}
		return unit.Commit(execCtx)
	}
	return unit, execCtx, finish, nil
}
