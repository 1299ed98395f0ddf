package command

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"travel/entity"
)

func (h Handler) CancelBookingHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"CancelBookingHandler",
		func(ctx context.Context, cmd *entity.CancelBooking_v1) error {
			logger := log.FromContext(ctx).WithField("booking_id", cmd.BookingID)
			logger.Info("Cancelling booking")

			_, err := h.bookings.CancelBooking(ctx, cmd.BookingID, cmd.Reason)
			if err != nil && entity.IsDomainError(err) {
				logger.WithError(err).Warn("Booking cannot be cancelled, skipping")
				return nil
			}

			return err
		},
	)
}
