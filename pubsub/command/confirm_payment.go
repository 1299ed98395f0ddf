package command

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"travel/entity"
)

func (h Handler) ConfirmBookingPaymentHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"ConfirmBookingPaymentHandler",
		func(ctx context.Context, cmd *entity.ConfirmBookingPayment_v1) error {
			logger := log.FromContext(ctx).WithField("booking_id", cmd.BookingID)
			logger.Info("Confirming booking payment")

			_, err := h.bookings.ConfirmPayment(ctx, cmd.BookingID)
			if err != nil && entity.IsDomainError(err) {
				// payment for a cancelled booking is settled by the refund flow
				logger.WithError(err).Warn("Payment cannot be confirmed, skipping")
				return nil
			}

			return err
		},
	)
}
