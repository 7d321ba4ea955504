package channel

import (
	"context"
	"log/slog"
	"maps"
	"sync"
)

// Memory is an in-process transport with log semantics: each topic keeps every
// published message and each group tracks its own read offset, starting at the
// oldest message. A message whose handler fails is logged and skipped, as the
// Kafka transport does.
type Memory struct {
	log    *slog.Logger
	mu     sync.Mutex
	topics map[string]*memTopic
	closed bool
}

type memTopic struct {
	messages []Message
	offsets  map[string]int
	// signal is closed and replaced on every publish.
	signal chan struct{}
}

func NewMemory(log *slog.Logger) *Memory {
	return &Memory{log: log, topics: map[string]*memTopic{}}
}

func (m *Memory) topic(name string) *memTopic {
	t, ok := m.topics[name]
	if !ok {
		t = &memTopic{offsets: map[string]int{}, signal: make(chan struct{})}
		m.topics[name] = t
	}
	return t
}

func (m *Memory) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg = withID(msg)
	msg.Headers = maps.Clone(msg.Headers)
	msg.Value = append([]byte(nil), msg.Value...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	t := m.topic(topic)
	t.messages = append(t.messages, msg)
	close(t.signal)
	t.signal = make(chan struct{})
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrClosed
		}
		t := m.topic(topic)
		if off := t.offsets[group]; off < len(t.messages) {
			msg := t.messages[off]
			t.offsets[group] = off + 1
			m.mu.Unlock()

			if err := h(ctx, msg); err != nil {
				m.log.Error("handler failed, message skipped", "topic", topic, "group", group, "message_id", msg.ID, "err", err)
			}
			continue
		}
		wait := t.signal
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-wait:
		}
	}
}

// Len reports how many messages were published to topic.
func (m *Memory) Len(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[topic]; ok {
		return len(t.messages)
	}
	return 0
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, t := range m.topics {
		close(t.signal)
	}
	return nil
}
