package outbox_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
	"github.com/dmehra2102/Gym-Booking-System/pkg/outbox"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []outbox.Event
	sent    []int64
	failed  map[int64]string
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(batchSize, len(s.pending))
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	return batch, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = errMsg
	return nil
}

type flakyPublisher struct {
	channel.Publisher
	failKey string
}

func (p flakyPublisher) Publish(ctx context.Context, topic string, msg channel.Message) error {
	if msg.Key == p.failKey {
		return errors.New("broker unavailable")
	}
	return p.Publisher.Publish(ctx, topic, msg)
}

func TestRelayRunOnce(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := channel.NewMemory(log)
	store := &fakeStore{pending: []outbox.Event{
		{ID: 1, AggregateID: "10", Topic: "booking-created", Type: "BookingCreated", Payload: []byte(`{}`), Headers: map[string]string{"traceparent": "00-abc"}},
		{ID: 2, AggregateID: "11", Topic: "booking-created", Type: "BookingCreated", Payload: []byte(`{}`)},
	}}
	relay := outbox.NewRelay(log, store, outbox.NewDispatcher(log, flakyPublisher{Publisher: mem, failKey: "11"}), "test-relay")

	sent, err := relay.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1}, store.sent)
	assert.Equal(t, "broker unavailable", store.failed[2])
	assert.Equal(t, 1, mem.Len("booking-created"))
}

func TestRelayRunOnceEmpty(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay := outbox.NewRelay(log, &fakeStore{}, outbox.NewDispatcher(log, channel.NewMemory(log)), "test-relay")

	sent, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}
