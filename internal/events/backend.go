package events

import (
	"context"
	"fmt"

	"github.com/karkinos-edge/authserver/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend is the broker surface the publisher needs.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// NewBackend opens the backend selected by cfg.Backend.
// It returns (nil, nil) when events are disabled.
func NewBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch cfg.Backend {
	case config.EventsNone, "":
		return nil, nil
	case config.EventsRabbitMQ:
		return NewRabbitMQBackend(cfg.RabbitMQ)
	case config.EventsPubSub:
		return NewPubSubBackend(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unsupported events backend %q", cfg.Backend)
	}
}
