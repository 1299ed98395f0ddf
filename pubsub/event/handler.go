package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"travel/pubsub/bus"
)

type PointsRefunder interface {
	RefundPoints(ctx context.Context, userID, bookingID string, points int) error
}

type Handler struct {
	loyalty PointsRefunder
}

func NewHandler(loyalty PointsRefunder) Handler {
	if loyalty == nil {
		panic("missing loyalty")
	}

	return Handler{loyalty: loyalty}
}

func (h Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.RefundLoyaltyPointsOnCancelHandler(),
	}
}

func NewProcessorConfig(rdb *redis.Client, logger watermill.LoggerAdapter) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-travel.events." + params.HandlerName,
			}, logger)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return bus.EventTopic(params.EventName), nil
		},
		Marshaler: bus.Marshaler,
		Logger:    logger,
	}
}
