package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishMapsMessage(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{w: w, topic: "agro.domain-events"}

	err := p.Publish(context.Background(), outbox.Message{
		Key:        "order-1",
		Data:       []byte(`{"x":1}`),
		Attributes: map[string]string{"event_type": "order_created"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "agro.domain-events", msg.Topic)
	assert.Equal(t, []byte("order-1"), msg.Key)
	assert.Equal(t, []byte(`{"x":1}`), msg.Value)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("order_created"), msg.Headers[0].Value)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishPropagatesWriterError(t *testing.T) {
	p := &Producer{w: &recordingWriter{err: errors.New("leader not available")}, topic: "t"}
	err := p.Publish(context.Background(), outbox.Message{Topic: "explicit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explicit")
	assert.False(t, outbox.IsNonRetryable(err))
}

func TestNewProducerValidates(t *testing.T) {
	_, err := NewProducer(context.Background(), config.KafkaConfig{Topic: "t"}, nil)
	assert.Error(t, err)

	_, err = NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)

	p, err := NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{" localhost:9092 ", ""}, Topic: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, p.brokers)
	assert.Equal(t, "t", p.Topic())
	require.NoError(t, p.Close())
}

func TestNilProducer(t *testing.T) {
	var p *Producer
	assert.True(t, outbox.IsNonRetryable(p.Publish(context.Background(), outbox.Message{})))
	assert.NoError(t, p.Close())
}
