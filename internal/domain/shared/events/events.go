package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates that emit domain events on state transitions.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

// Drain returns the pending events and resets the recorder.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.PendingEvents()
	r.ClearEvents()
	return out
}

// Source is implemented by anything embedding EventRecorder.
type Source interface {
	Drain() []DomainEvent
}

// Collect drains every source in order.
func Collect(sources ...Source) []DomainEvent {
	var out []DomainEvent
	for _, s := range sources {
		if s == nil {
			continue
		}
		out = append(out, s.Drain()...)
	}
	return out
}
