package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/cobic/core"
)

// Handlers receive decoded events. Either may be nil.
type Handlers struct {
	Session      func(core.SessionEvent)
	Notification func(core.Notification)
}

// Listen subscribes to the session and notification topics and dispatches
// decoded events until ctx is done. Subscription happens before Listen
// returns, so events published afterwards are not missed.
func Listen(ctx context.Context, sub message.Subscriber, h Handlers, logger logrus.FieldLogger) error {
	if h.Session != nil {
		msgs, err := sub.Subscribe(ctx, SessionTopic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", SessionTopic, err)
		}
		go consume(msgs, logger, func(payload []byte) error {
			var event core.SessionEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return err
			}
			h.Session(event)
			return nil
		})
	}

	if h.Notification != nil {
		msgs, err := sub.Subscribe(ctx, NotificationTopic)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", NotificationTopic, err)
		}
		go consume(msgs, logger, func(payload []byte) error {
			var n core.Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			h.Notification(n)
			return nil
		})
	}

	return nil
}

func consume(msgs <-chan *message.Message, logger logrus.FieldLogger, handle func([]byte) error) {
	for msg := range msgs {
		if err := handle(msg.Payload); err != nil {
			// a malformed payload will not decode on redelivery either
			logger.WithError(err).WithField("message_id", msg.UUID).Warn("Dropping undecodable event")
		}
		msg.Ack()
	}
}
