package kafka

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"event-ticketing/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{Writer: w, Logger: logger.NewWithWriter(&bytes.Buffer{})}

	err := p.PublishJSON(context.Background(), "ticketing.orders.events", "ord-1", map[string]string{"type": "order.created"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "ticketing.orders.events", w.msgs[0].Topic)
	assert.Equal(t, "ord-1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"type":"order.created"}`, string(w.msgs[0].Value))
}

func TestProducer_PublishWrapsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Producer{Writer: w, Logger: logger.Discard()}

	err := p.Publish(context.Background(), "t", "k", []byte("v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to t")
}

// fakeReader hands out queued messages then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_RunHandlesAndCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "payments", Key: []byte("a"), Value: []byte("1")},
		{Topic: "payments", Key: []byte("b"), Value: []byte("2")},
	}}
	c := NewConsumerWithReader(reader, "payments", logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(_ context.Context, msg kafka.Message) error {
			mu.Lock()
			seen = append(seen, string(msg.Key))
			mu.Unlock()
			return nil
		})
	}()

	require.Eventually(t, func() bool { return reader.committedCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestConsumer_PermanentErrorIsNotRetried(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Topic: "payments", Key: []byte("bad")}}}
	c := NewConsumerWithReader(reader, "payments", logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls int
	var mu sync.Mutex
	go c.Run(ctx, func(context.Context, kafka.Message) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return Permanent(errors.New("malformed"))
	})

	require.Eventually(t, func() bool { return reader.committedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}
