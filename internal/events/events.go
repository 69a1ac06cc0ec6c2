// Package events publishes account lifecycle events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karkinos-edge/authserver/types"
)

// Event types emitted by the credential service.
const (
	TypeAccountRegistered      = "account.registered"
	TypeAccountAuthenticated   = "account.authenticated"
	TypeAccountPasswordChanged = "account.password_changed"
)

// attrType carries the event type as a broker attribute so consumers can
// filter without decoding the body.
const attrType = "type"

// Event is the JSON payload written to the topic. It never carries secrets.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an event of the given type for account.
func NewEvent(eventType string, account types.Account) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		AccountID:  account.ID,
		Username:   account.Username,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher writes events to a single topic of a Backend.
type Publisher struct {
	backend Backend
	topic   string
}

// NewPublisher constructs a Publisher for topic.
func NewPublisher(backend Backend, topic string) (*Publisher, error) {
	if backend == nil {
		return nil, errors.New("events backend is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("events topic is required")
	}
	return &Publisher{backend: backend, topic: topic}, nil
}

// Publish encodes event and sends it to the topic.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := p.backend.Publish(ctx, p.topic, data, map[string]string{attrType: event.Type}); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Watch consumes the topic until ctx is done, decoding each message before
// handing it to fn. Messages that fail to decode are passed to onInvalid
// (when non-nil) and dropped.
func (p *Publisher) Watch(ctx context.Context, fn func(ctx context.Context, event Event) error, onInvalid func(msg Message, err error)) error {
	return p.backend.Subscribe(ctx, p.topic, func(ctx context.Context, msg Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			if onInvalid != nil {
				onInvalid(msg, err)
			}
			return nil
		}
		return fn(ctx, event)
	})
}

// Topic returns the topic the publisher writes to.
func (p *Publisher) Topic() string {
	return p.topic
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}
