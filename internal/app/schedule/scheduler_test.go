package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/commands"
)

type tick struct{}

func (tick) Key() string { return "test.tick" }

type countingBus struct {
	calls atomic.Int32
	err   error
}

func (b *countingBus) Dispatch(context.Context, commands.Command) (any, error) {
	b.calls.Add(1)
	return nil, b.err
}

func TestRunnerDispatchesUntilCancelled(t *testing.T) {
	bus := &countingBus{err: errors.New("transient")}
	runner := &Runner{
		Bus: bus,
		Jobs: []Job{
			{Name: "tick", Every: 5 * time.Millisecond, Command: func() commands.Command { return tick{} }},
			{Name: "disabled", Every: 0, Command: func() commands.Command { return tick{} }},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return bus.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerRequiresBus(t *testing.T) {
	err := (&Runner{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoBus)
}
