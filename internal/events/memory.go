package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// MemoryBackend delivers messages to in-process subscribers. Published
// messages are also retained so tests can inspect them.
type MemoryBackend struct {
	mu          sync.Mutex
	seq         int
	published   map[string][]Message
	subscribers map[string][]chan Message
	closed      bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		published:   make(map[string][]Message),
		subscribers: make(map[string][]chan Message),
	}
}

func (m *MemoryBackend) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", errors.New("memory backend closed")
	}

	m.seq++
	msg := Message{
		ID:         strconv.Itoa(m.seq),
		Data:       append([]byte(nil), data...),
		Attributes: attrs,
	}
	m.published[topic] = append(m.published[topic], msg)
	for _, ch := range m.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe blocks until ctx is done. Handler errors are ignored; there is no
// redelivery.
func (m *MemoryBackend) Subscribe(ctx context.Context, topic string, handler Handler) error {
	ch := make(chan Message, 64)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("memory backend closed")
	}
	m.subscribers[topic] = append(m.subscribers[topic], ch)
	m.mu.Unlock()

	defer m.unsubscribe(topic, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

// Published returns a copy of the messages sent to topic.
func (m *MemoryBackend) Published(topic string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.published[topic]...)
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryBackend) unsubscribe(topic string, ch chan Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subscribers[topic]
	for i, c := range subs {
		if c == ch {
			m.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
