package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/commands"
	"stayride/internal/app/middleware"
	appoutbox "stayride/internal/app/outbox"
	"stayride/internal/domain/shared/rules"
	"stayride/internal/infra/storage/memory"
)

type counted struct {
	N int `json:"n"`
}

type pingCommand struct {
	Actor   commands.Actor
	IdemKey string
	Name    string
}

func (c pingCommand) Key() string { return "test.ping" }

func (c pingCommand) Principal() commands.Actor { return c.Actor }

func (c pingCommand) IdempotencyKey() string { return c.IdemKey }

func (c pingCommand) ResultPrototype() any { return &counted{} }

func (c pingCommand) Validate() error {
	if c.Name == "" {
		return errors.New("name required")
	}
	if c.Name == "rule" {
		return rules.New(rules.KindInvalidDateRange, "check-out before check-in")
	}
	return nil
}

var guest = commands.Actor{ID: "guest-1", Role: "guest"}

func busWith(handler func(ctx context.Context, cmd pingCommand) (*counted, error)) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[pingCommand, *counted](bus, "test.ping", commands.HandlerFunc[pingCommand, *counted](handler))
	return bus
}

func TestIdempotencyReplaysResult(t *testing.T) {
	calls := 0
	base := busWith(func(ctx context.Context, cmd pingCommand) (*counted, error) {
		calls++
		return &counted{N: calls}, nil
	})
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(0), nil))
	ctx := context.Background()

	first, err := commands.Dispatch[pingCommand, *counted](ctx, bus, pingCommand{Name: "a", IdemKey: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[pingCommand, *counted](ctx, bus, pingCommand{Name: "a", IdemKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	_, err = commands.Dispatch[pingCommand, *counted](ctx, bus, pingCommand{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyReplaysRuleViolationsOnly(t *testing.T) {
	calls := 0
	fail := error(rules.New(rules.KindDateConflict, "dates taken"))
	base := busWith(func(ctx context.Context, cmd pingCommand) (*counted, error) {
		calls++
		return nil, fail
	})
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(0), nil))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := bus.Dispatch(ctx, pingCommand{Name: "a", IdemKey: "k1"})
		assert.ErrorIs(t, err, rules.ErrDateConflict)
	}
	assert.Equal(t, 1, calls)

	fail = errors.New("database unavailable")
	for i := 0; i < 2; i++ {
		_, err := bus.Dispatch(ctx, pingCommand{Name: "a", IdemKey: "k2"})
		assert.EqualError(t, err, "database unavailable")
	}
	assert.Equal(t, 3, calls)
}

func TestValidationWrapsPlainErrors(t *testing.T) {
	base := busWith(func(ctx context.Context, cmd pingCommand) (*counted, error) { return &counted{}, nil })
	bus := middleware.ChainCommands(base, middleware.Validation(middleware.SelfValidator{}))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, pingCommand{})
	assert.ErrorIs(t, err, middleware.ErrInvalidMessage)

	_, err = bus.Dispatch(ctx, pingCommand{Name: "rule"})
	assert.ErrorIs(t, err, rules.ErrInvalidDateRange)
	assert.NotErrorIs(t, err, middleware.ErrInvalidMessage)

	_, err = bus.Dispatch(ctx, pingCommand{Name: "ok"})
	assert.NoError(t, err)
}

func TestAuthorizationNeedsKnownActor(t *testing.T) {
	base := busWith(func(ctx context.Context, cmd pingCommand) (*counted, error) { return &counted{}, nil })
	bus := middleware.ChainCommands(base, middleware.Authorization(middleware.ActorAuthorizer{}))
	ctx := context.Background()

	tests := []struct {
		name  string
		actor commands.Actor
		ok    bool
	}{
		{name: "guest", actor: guest, ok: true},
		{name: "owner", actor: commands.Actor{ID: "owner-1", Role: "owner"}, ok: true},
		{name: "anonymous", actor: commands.Actor{Role: "guest"}},
		{name: "system impersonation", actor: commands.Actor{ID: "cron", Role: "system"}},
		{name: "unknown role", actor: commands.Actor{ID: "x", Role: "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bus.Dispatch(ctx, pingCommand{Name: "a", Actor: tt.actor})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, rules.ErrNotAllowed)
		})
	}
}

func TestEventsLeaveOnlyAfterCommit(t *testing.T) {
	box := memory.NewOutbox()
	factory := memory.Factory{Store: memory.NewStore(), Outbox: box}
	failNext := true
	base := busWith(func(ctx context.Context, cmd pingCommand) (*counted, error) {
		if err := box.Add(ctx, appoutbox.EventRecord{ID: cmd.Name, Name: "test.pinged"}); err != nil {
			return nil, err
		}
		if failNext {
			return nil, errors.New("boom")
		}
		return &counted{N: 1}, nil
	})
	bus := middleware.ChainCommands(base, middleware.OutboxFlush(box), middleware.Transaction(factory, nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, pingCommand{Name: "first"})
	require.Error(t, err)
	assert.Empty(t, box.Pending())

	failNext = false
	_, err = bus.Dispatch(ctx, pingCommand{Name: "second"})
	require.NoError(t, err)
	pending := box.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].ID)

	select {
	case <-box.Notify():
	default:
		t.Fatal("relay was not woken")
	}
}
