package ports

import (
	"context"

	"github.com/layer-3/cobic/core"
)

// EventPublisher delivers session transitions and local notifications to the
// presentation layer
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event core.SessionEvent) error
	PublishNotification(ctx context.Context, n core.Notification) error
}

// NetworkProbe reports whether the backend is reachable at all
type NetworkProbe interface {
	Reachable(ctx context.Context) error
}
