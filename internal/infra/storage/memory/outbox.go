package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayride/internal/app/outbox"
	"stayride/internal/app/uow"
	infraoutbox "stayride/internal/infra/outbox"
)

// Outbox keeps staged events in process. Records added inside a unit of work
// become visible to the relay only when that unit commits.
type Outbox struct {
	mu       sync.Mutex
	messages []*infraoutbox.Message
	wake     chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{wake: make(chan struct{}, 1)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if u, ok := unit.(*Unit); ok {
			return u.stage(record)
		}
	}
	o.append(record)
	return nil
}

// Flush wakes the relay without blocking.
func (o *Outbox) Flush(context.Context) error {
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

func (o *Outbox) Notify() <-chan struct{} {
	return o.wake
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	now := time.Now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range records {
		o.messages = append(o.messages, &infraoutbox.Message{
			ID:          rec.ID,
			Name:        rec.Name,
			Payload:     rec.Payload,
			OccurredAt:  rec.OccurredAt,
			Aggregate:   rec.Aggregate,
			Headers:     rec.Headers,
			State:       infraoutbox.StateNew,
			NextAttempt: now,
		})
	}
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	now := time.Now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.messages {
		if m.State != infraoutbox.StateNew && m.State != infraoutbox.StateFailed {
			continue
		}
		if m.NextAttempt.After(now) {
			continue
		}
		m.State = infraoutbox.StateClaimed
		m.ClaimedBy = workerID
		m.ClaimedAt = now
		out := *m
		return &out, nil
	}
	return nil, nil
}

// MarkSent drops the message; nothing reads sent records back.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, m := range o.messages {
		if m.ID == id {
			o.messages = append(o.messages[:i], o.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.messages {
		if m.ID == id {
			m.State = infraoutbox.StateFailed
			m.NextAttempt = next
			m.LastError = errMsg
			m.Attempts++
			return nil
		}
	}
	return nil
}

// Pending returns copies of the messages not yet sent, oldest first.
func (o *Outbox) Pending() []infraoutbox.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.Message, 0, len(o.messages))
	for _, m := range o.messages {
		out = append(out, *m)
	}
	return out
}

var (
	_ appoutbox.Outbox     = (*Outbox)(nil)
	_ infraoutbox.Store    = (*Outbox)(nil)
	_ infraoutbox.Notifier = (*Outbox)(nil)
)
