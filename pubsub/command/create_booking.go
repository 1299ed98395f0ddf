package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"travel/booking"
	"travel/entity"
)

func (h Handler) CreateBookingHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"CreateBookingHandler",
		func(ctx context.Context, cmd *entity.CreateBooking_v1) error {
			log.FromContext(ctx).Infof("CreateBookingHandler: %s", cmd.BookingID)

			_, err := h.bookings.CreateBooking(ctx, booking.CreateBookingRequest{
				BookingID:          cmd.BookingID,
				UserID:             cmd.UserID,
				DepartureID:        cmd.DepartureID,
				Seats:              cmd.Seats,
				PaymentMethod:      cmd.PaymentMethod,
				LoyaltyPointsToUse: cmd.LoyaltyPointsToUse,
				ClaimedOfferID:     cmd.ClaimedOfferID,
			})
			if err == nil {
				return nil
			}
			if !entity.IsDomainError(err) {
				return err
			}

			if errors.Is(err, entity.ErrSeatsUnavailable) {
				// the seats may have gone to a concurrent delivery of this command
				_, getErr := h.bookings.GetBooking(ctx, cmd.BookingID)
				if getErr == nil {
					log.FromContext(ctx).Infof("Booking %s was created by another delivery", cmd.BookingID)
					return nil
				}
				if !errors.Is(getErr, entity.ErrBookingNotFound) {
					return fmt.Errorf("could not check booking %s: %w", cmd.BookingID, getErr)
				}
			}

			return h.rejected(ctx, entity.BookingFailed_v1{
				BookingID:   cmd.BookingID,
				UserID:      cmd.UserID,
				DepartureID: cmd.DepartureID,
				Seats:       cmd.Seats,
			}, err)
		},
	)
}
