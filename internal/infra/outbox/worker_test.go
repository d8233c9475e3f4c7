package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stayride/internal/app/outbox"
	"stayride/internal/infra/outbox"
	"stayride/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type recordingProducer struct {
	mu   sync.Mutex
	fail error
	sent []published
}

func (p *recordingProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func (p *recordingProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func stage(t *testing.T, box *memory.Outbox, id, name, aggregate string) {
	t.Helper()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"booking_id":"` + aggregate + `"}`),
		OccurredAt: time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC),
		Aggregate:  aggregate,
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}))
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	stage(t, box, "evt-1", "booking.confirmed", "bk-1")
	stage(t, box, "evt-2", "calendar.blocked", "lst-1")

	producer := &recordingProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, TopicPrefix: "stayride.", Source: "app://test"}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, box.Pending())

	require.Len(t, producer.sent, 2)
	first := producer.sent[0]
	assert.Equal(t, "stayride.booking.events.v1", first.topic)
	assert.Equal(t, "bk-1", first.key)
	assert.Equal(t, "application/cloudevents+json", first.headers["content-type"])
	assert.Equal(t, "00-abc-def-01", first.headers["traceparent"])
	assert.Equal(t, "stayride.calendar.events.v1", producer.sent[1].topic)

	var evt map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "booking.confirmed.v1", evt["type"])
	assert.Equal(t, "app://test", evt["source"])
	assert.Equal(t, "bk-1", evt["subject"])
	assert.Equal(t, map[string]any{"booking_id": "bk-1"}, evt["data"])
}

func TestFailedPublishIsRetriedLater(t *testing.T) {
	box := memory.NewOutbox()
	stage(t, box, "evt-1", "booking.cancelled", "bk-1")

	producer := &recordingProducer{fail: errors.New("broker unavailable")}
	w := &outbox.Worker{Store: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending := box.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.StateFailed, pending[0].State)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker unavailable", pending[0].LastError)
	assert.True(t, pending[0].NextAttempt.After(time.Now().Add(50*time.Minute)))

	// Not due yet, so nothing is claimed.
	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMalformedPayloadIsParked(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{ID: "evt-1", Name: "booking.requested", Payload: []byte("not json")}))

	producer := &recordingProducer{}
	w := &outbox.Worker{Store: box, Producer: producer}
	_, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, producer.count())
	require.Len(t, box.Pending(), 1)
	assert.Equal(t, outbox.StateFailed, box.Pending()[0].State)
}

func TestRunWakesOnFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	box := memory.NewOutbox()
	producer := &recordingProducer{}
	w := &outbox.Worker{Store: box, Producer: producer, Interval: time.Hour}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	stage(t, box, "evt-1", "listing.created", "lst-1")
	require.NoError(t, box.Flush(ctx))
	require.Eventually(t, func() bool { return producer.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunNeedsStoreAndProducer(t *testing.T) {
	err := (&outbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, outbox.ErrWorkerNotConfigured)
}
