package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/sirupsen/logrus"

	"travel/entity"
)

// RefundLoyaltyPointsOnCancelHandler gives back exactly the points a cancelled
// booking redeemed.
func (h Handler) RefundLoyaltyPointsOnCancelHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"RefundLoyaltyPointsOnCancel",
		func(ctx context.Context, event *entity.BookingCancelled_v1) error {
			if event.PointsRedeemed <= 0 {
				return nil
			}

			log.FromContext(ctx).WithFields(logrus.Fields{
				"booking_id": event.BookingID,
				"points":     event.PointsRedeemed,
			}).Info("Refunding loyalty points")

			if err := h.loyalty.RefundPoints(ctx, event.UserID, event.BookingID, event.PointsRedeemed); err != nil {
				return fmt.Errorf("could not refund loyalty points: %w", err)
			}

			return nil
		},
	)
}
