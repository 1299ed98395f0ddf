package bus

import (
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewEventBus publishes every event to its own topic, events.<EventName>.
func NewEventBus(pub message.Publisher) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return EventTopic(params.EventName), nil
		},
		Marshaler: Marshaler,
	})
}

func EventTopic(eventName string) string {
	return "events." + eventName
}
