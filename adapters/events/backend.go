package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// PubSub is a publisher and subscriber pair sharing one backend
type PubSub interface {
	message.Publisher
	message.Subscriber
}

// NewGoChannel creates the in-process backend. Subscribers only receive
// messages published after they subscribed.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
}

// RedisStream publishes and consumes events through Redis streams so another
// process can follow the session
type RedisStream struct {
	*redisstream.Publisher
	*redisstream.Subscriber
}

// NewRedisStream creates the Redis streams backend. consumerGroup may be empty
// for fan-out delivery.
func NewRedisStream(client redis.UniversalClient, consumerGroup string, logger watermill.LoggerAdapter) (*RedisStream, error) {
	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	sub, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: consumerGroup,
		},
		logger,
	)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("failed to create redis subscriber: %w", err)
	}

	return &RedisStream{Publisher: pub, Subscriber: sub}, nil
}

// Close closes both halves
func (r *RedisStream) Close() error {
	perr := r.Publisher.Close()
	serr := r.Subscriber.Close()
	if perr != nil {
		return perr
	}
	return serr
}
