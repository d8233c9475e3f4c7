package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageSortsHeaders(t *testing.T) {
	msg := buildMessage("booking.events.v1", "bk-1", []byte(`{}`), map[string]string{
		"content-type":   "application/cloudevents+json",
		"aggregate_type": "booking",
	})

	assert.Equal(t, "booking.events.v1", msg.Topic)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "bk-1", string(key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "aggregate_type", string(msg.Headers[0].Key))
	assert.Equal(t, "content-type", string(msg.Headers[1].Key))
}

func TestPublishSendsThroughSyncProducer(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"id":"1"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	p := WithSyncProducer(mock)

	err := p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{"id":"1"}`), nil)

	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishReportsBrokerFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := WithSyncProducer(mock)

	err := p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{}`), nil)

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	p := WithSyncProducer(mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, "booking.events.v1", "bk-1", []byte(`{}`), nil)

	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, p.Close())
}
