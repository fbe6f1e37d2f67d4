package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/cobic/core"
)

const (
	SessionTopic      = "cobic.session"
	NotificationTopic = "cobic.notifications"
)

// WatermillPublisher implements ports.EventPublisher on top of any Watermill
// publisher
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishSessionEvent publishes a session transition
func (p *WatermillPublisher) PublishSessionEvent(ctx context.Context, event core.SessionEvent) error {
	return p.publish(ctx, SessionTopic, event)
}

// PublishNotification publishes a local notification
func (p *WatermillPublisher) PublishNotification(ctx context.Context, n core.Notification) error {
	return p.publish(ctx, NotificationTopic, n)
}

// Close closes the underlying publisher
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
