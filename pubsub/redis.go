package pubsub

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"travel/tracing"
)

func NewRedisPublisher(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) (message.Publisher, error) {
	var publisher message.Publisher
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermillLogger)
	if err != nil {
		return nil, err
	}

	publisher = tracing.PublisherDecorator{Publisher: publisher}
	publisher = log.CorrelationPublisherDecorator{Publisher: publisher}
	return publisher, nil
}
