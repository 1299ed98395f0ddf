package command

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"travel/booking"
	"travel/entity"
	"travel/pubsub/bus"
)

type BookingService interface {
	CreateBooking(ctx context.Context, req booking.CreateBookingRequest) (entity.Booking, error)
	CancelBooking(ctx context.Context, bookingID, reason string) (entity.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID string) (entity.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (entity.Booking, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Handler struct {
	eventBus EventPublisher
	bookings BookingService
}

func NewHandler(eventBus EventPublisher, bookings BookingService) Handler {
	if eventBus == nil {
		panic("missing eventBus")
	}
	if bookings == nil {
		panic("missing bookings")
	}

	return Handler{
		eventBus: eventBus,
		bookings: bookings,
	}
}

func (h Handler) Handlers() []cqrs.CommandHandler {
	return []cqrs.CommandHandler{
		h.CreateBookingHandler(),
		h.CancelBookingHandler(),
		h.ConfirmBookingPaymentHandler(),
	}
}

func NewProcessorConfig(rdb *redis.Client, logger watermill.LoggerAdapter) cqrs.CommandProcessorConfig {
	return cqrs.CommandProcessorConfig{
		SubscriberConstructor: func(params cqrs.CommandProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-travel.commands." + params.HandlerName,
			}, logger)
		},
		GenerateSubscribeTopic: func(params cqrs.CommandProcessorGenerateSubscribeTopicParams) (string, error) {
			return bus.CommandTopic(params.CommandName), nil
		},
		Marshaler: bus.Marshaler,
		Logger:    logger,
	}
}

// rejected acknowledges a command that can never succeed. Redelivering it
// would fail the same way, so the failure is reported as an event instead.
func (h Handler) rejected(ctx context.Context, failed entity.BookingFailed_v1, err error) error {
	log.FromContext(ctx).WithError(err).WithField("booking_id", failed.BookingID).Warn("Command rejected")

	failed.Header = entity.NewEventHeaderWithIdempotencyKey(failed.BookingID)
	failed.Reason = err.Error()

	if err := h.eventBus.Publish(ctx, failed); err != nil {
		return fmt.Errorf("could not publish BookingFailed_v1: %w", err)
	}
	return nil
}
