package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"travel/discount"
	"travel/entity"
	"travel/inventory"
	"travel/metrics"
	"travel/pricing"
)

type DepartureRepository interface {
	Get(ctx context.Context, departureID string) (entity.Departure, error)
}

type RuleRepository interface {
	// ActiveRules returns active rules that are global or scoped to routeID.
	ActiveRules(ctx context.Context, routeID string) ([]entity.PricingRule, error)
}

// LoyaltyService is the loyalty subsystem. The engine only reads discounts
// and balances from it and asks it to move points.
type LoyaltyService interface {
	TierDiscountPct(ctx context.Context, userID string) (int, error)
	ClaimedOfferPct(ctx context.Context, userID, offerID string) (int, error)
	PointsBalance(ctx context.Context, userID string) (int, error)
	RedeemPoints(ctx context.Context, userID, bookingID string, points int) error
	RefundPoints(ctx context.Context, userID, bookingID string, points int) error
}

type SeatInventory interface {
	Reserve(ctx context.Context, departureID, bookingID string, seatNames []string) error
	Release(ctx context.Context, departureID, bookingID string, seatNames []string) (int, error)
	Seats(ctx context.Context, departureID string) ([]entity.Seat, error)
}

type BookingRepository interface {
	Add(ctx context.Context, booking entity.Booking) error
	Get(ctx context.Context, bookingID string) (entity.Booking, error)
	Update(ctx context.Context, bookingID string, updateFn func(booking *entity.Booking) error) (entity.Booking, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type CreateBookingRequest struct {
	// BookingID is optional. When set, repeating the request returns the
	// booking created by the first call.
	BookingID          string
	UserID             string
	DepartureID        string
	Seats              []string
	PaymentMethod      entity.PaymentMethod
	LoyaltyPointsToUse int
	ClaimedOfferID     string
}

type Service struct {
	departures DepartureRepository
	rules      RuleRepository
	loyalty    LoyaltyService
	inventory  SeatInventory
	bookings   BookingRepository
	publisher  EventPublisher

	evaluator pricing.Evaluator
	now       func() time.Time
	tracer    trace.Tracer
}

func NewService(
	departures DepartureRepository,
	rules RuleRepository,
	loyalty LoyaltyService,
	inventory SeatInventory,
	bookings BookingRepository,
	publisher EventPublisher,
) *Service {
	if departures == nil {
		panic("missing departures repository")
	}
	if rules == nil {
		panic("missing rules repository")
	}
	if loyalty == nil {
		panic("missing loyalty service")
	}
	if inventory == nil {
		panic("missing seat inventory")
	}
	if bookings == nil {
		panic("missing bookings repository")
	}
	if publisher == nil {
		panic("missing event publisher")
	}

	return &Service{
		departures: departures,
		rules:      rules,
		loyalty:    loyalty,
		inventory:  inventory,
		bookings:   bookings,
		publisher:  publisher,
		evaluator:  pricing.NewEvaluator(),
		now:        time.Now,
		tracer:     otel.Tracer("booking"),
	}
}

// WithClock replaces the clock used for pricing and booking timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.evaluator = pricing.Evaluator{Now: now}
	return s
}

func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (_ entity.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "CreateBooking", trace.WithAttributes(
		attribute.String("departure_id", req.DepartureID),
		attribute.String("user_id", req.UserID),
	))
	defer func() { endSpan(span, err) }()

	seats, err := validateCreateRequest(req)
	if err != nil {
		return entity.Booking{}, err
	}

	if req.BookingID != "" {
		existing, err := s.bookings.Get(ctx, req.BookingID)
		if err == nil {
			log.FromContext(ctx).WithField("booking_id", req.BookingID).Info("Booking already exists, skipping")
			return existing, nil
		}
		if !errors.Is(err, entity.ErrBookingNotFound) {
			return entity.Booking{}, fmt.Errorf("could not check existing booking: %w", err)
		}
	} else {
		req.BookingID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("booking_id", req.BookingID))

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id":   req.BookingID,
		"departure_id": req.DepartureID,
		"user_id":      req.UserID,
		"seats":        seats,
	})

	departure, err := s.departures.Get(ctx, req.DepartureID)
	if err != nil {
		return entity.Booking{}, err
	}
	if !departure.Bookable() {
		return entity.Booking{}, entity.ConflictError{
			Resource: "departure",
			Msg:      fmt.Sprintf("%s is %s", departure.DepartureID, departure.Status),
			Err:      entity.ErrDepartureNotBookable,
		}
	}

	quote, err := s.quote(ctx, departure)
	if err != nil {
		return entity.Booking{}, err
	}
	baseTotal := quote.Fare.Mul(decimal.NewFromInt(int64(len(seats))))

	tierPct, offerPct, err := s.percentages(ctx, req.UserID, req.ClaimedOfferID)
	if err != nil {
		return entity.Booking{}, err
	}

	maxPoints := 0
	if req.LoyaltyPointsToUse > 0 {
		maxPoints, err = s.loyalty.PointsBalance(ctx, req.UserID)
		if err != nil {
			metrics.SoftFailures.WithLabelValues("points_balance").Inc()
			logger.WithError(err).Warn("Could not read points balance, booking without points")
			maxPoints = 0
		}
	}

	total, breakdown, err := discount.Apply(baseTotal, tierPct, offerPct, req.LoyaltyPointsToUse, maxPoints)
	if err != nil {
		return entity.Booking{}, err
	}

	if err := s.inventory.Reserve(ctx, departure.DepartureID, req.BookingID, seats); err != nil {
		if errors.Is(err, entity.ErrSeatsAlreadyBooked) {
			return entity.Booking{}, entity.ConflictError{
				Resource: "seats",
				Err:      fmt.Errorf("%w: %w", entity.ErrSeatsUnavailable, err),
			}
		}
		return entity.Booking{}, err
	}

	// the departure lock is released at this point, loyalty calls are safe
	if breakdown.PointsRedeemed > 0 {
		if err := s.loyalty.RedeemPoints(ctx, req.UserID, req.BookingID, breakdown.PointsRedeemed); err != nil {
			metrics.SoftFailures.WithLabelValues("points_redemption").Inc()
			logger.WithError(err).Warn("Could not redeem loyalty points, booking without points")

			total, breakdown, err = discount.WithoutPoints(baseTotal, tierPct, offerPct)
			if err != nil {
				return entity.Booking{}, s.compensate(ctx, req, seats, 0, err)
			}
		}
	}

	now := s.now().UTC()
	booking := entity.Booking{
		BookingID:      req.BookingID,
		UserID:         req.UserID,
		DepartureID:    departure.DepartureID,
		RouteID:        departure.RouteID,
		Seats:          seats,
		Fare:           quote.Fare,
		BaseTotal:      baseTotal,
		TotalAmount:    total,
		Currency:       departure.Currency,
		Discounts:      breakdown,
		PaymentMethod:  req.PaymentMethod,
		ClaimedOfferID: req.ClaimedOfferID,
		Status:         entity.InitialBookingStatus(req.PaymentMethod),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.bookings.Add(ctx, booking); err != nil {
		if errors.Is(err, entity.ErrBookingAlreadyExists) {
			// A concurrent delivery of the same request won. The points ledger
			// is keyed by booking ID, so the redemption belongs to the winner.
			_ = s.compensate(ctx, req, seats, 0, err)
			return s.bookings.Get(ctx, req.BookingID)
		}
		return entity.Booking{}, s.compensate(ctx, req, seats, breakdown.PointsRedeemed, err)
	}

	metrics.BookingsCreated.WithLabelValues(string(booking.PaymentMethod), string(booking.Status)).Inc()
	logger.WithFields(logrus.Fields{
		"total":         booking.TotalAmount.String(),
		"applied_rules": quote.AppliedRuleIDs(),
		"status":        booking.Status,
	}).Info("Booking created")

	s.publish(ctx, entity.BookingCreated_v1{
		Header:         entity.NewEventHeaderWithIdempotencyKey(booking.BookingID),
		BookingID:      booking.BookingID,
		UserID:         booking.UserID,
		DepartureID:    booking.DepartureID,
		RouteID:        booking.RouteID,
		Seats:          booking.Seats,
		TotalAmount:    booking.TotalAmount,
		Currency:       booking.Currency,
		PaymentMethod:  booking.PaymentMethod,
		Status:         booking.Status,
		PointsRedeemed: booking.Discounts.PointsRedeemed,
	})
	s.publish(ctx, entity.NewBookingForDriver_v1{
		Header:      entity.NewEventHeaderWithIdempotencyKey(booking.BookingID),
		BookingID:   booking.BookingID,
		DriverID:    departure.DriverID,
		DepartureID: booking.DepartureID,
		RouteID:     booking.RouteID,
		Seats:       booking.Seats,
		DepartsAt:   departure.DepartsAt,
	})

	return booking, nil
}

// CancelBooking returns the booking's seats to the pool. Cancelling an already
// cancelled booking releases nothing new and emits nothing.
func (s *Service) CancelBooking(ctx context.Context, bookingID, reason string) (_ entity.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "CancelBooking", trace.WithAttributes(attribute.String("booking_id", bookingID)))
	defer func() { endSpan(span, err) }()

	alreadyCancelled := false
	booking, err := s.bookings.Update(ctx, bookingID, func(b *entity.Booking) error {
		if b.Status == entity.BookingCancelled {
			alreadyCancelled = true
			return nil
		}

		now := s.now().UTC()
		b.Status = entity.BookingCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return entity.Booking{}, err
	}

	// Release even on a repeated cancel, in case an earlier attempt stopped here.
	// Only seats still held by this booking are freed.
	if _, err := s.inventory.Release(ctx, booking.DepartureID, booking.BookingID, booking.Seats); err != nil {
		return entity.Booking{}, fmt.Errorf("could not release seats of booking %s: %w", bookingID, err)
	}

	if alreadyCancelled {
		return booking, nil
	}

	metrics.BookingsCancelled.Inc()
	log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": bookingID,
		"reason":     reason,
	}).Info("Booking cancelled")

	s.publish(ctx, entity.BookingCancelled_v1{
		Header:         entity.NewEventHeaderWithIdempotencyKey(booking.BookingID),
		BookingID:      booking.BookingID,
		UserID:         booking.UserID,
		DepartureID:    booking.DepartureID,
		RouteID:        booking.RouteID,
		Seats:          booking.Seats,
		TotalAmount:    booking.TotalAmount,
		Currency:       booking.Currency,
		PointsRedeemed: booking.Discounts.PointsRedeemed,
	})

	return booking, nil
}

// ConfirmPayment moves a pending booking to confirmed.
func (s *Service) ConfirmPayment(ctx context.Context, bookingID string) (_ entity.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "ConfirmPayment", trace.WithAttributes(attribute.String("booking_id", bookingID)))
	defer func() { endSpan(span, err) }()

	changed := false
	booking, err := s.bookings.Update(ctx, bookingID, func(b *entity.Booking) error {
		switch b.Status {
		case entity.BookingConfirmed:
			return nil
		case entity.BookingCancelled:
			return entity.ConflictError{Resource: "booking", Msg: bookingID + " is cancelled", Err: entity.ErrBookingCancelled}
		}

		b.Status = entity.BookingConfirmed
		b.UpdatedAt = s.now().UTC()
		changed = true
		return nil
	})
	if err != nil {
		return entity.Booking{}, err
	}
	if !changed {
		return booking, nil
	}

	s.publish(ctx, entity.BookingPaymentConfirmed_v1{
		Header:      entity.NewEventHeaderWithIdempotencyKey(booking.BookingID),
		BookingID:   booking.BookingID,
		UserID:      booking.UserID,
		TotalAmount: booking.TotalAmount,
		Currency:    booking.Currency,
	})

	return booking, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID string) (entity.Booking, error) {
	return s.bookings.Get(ctx, bookingID)
}

func (s *Service) SeatMap(ctx context.Context, departureID string) ([]entity.Seat, error) {
	return s.inventory.Seats(ctx, departureID)
}

// QuoteFare prices seatCount seats on a departure before any discount.
func (s *Service) QuoteFare(ctx context.Context, departureID string, seatCount int) (pricing.Quote, decimal.Decimal, error) {
	if seatCount <= 0 {
		return pricing.Quote{}, decimal.Zero, entity.ValidationError{
			Field: "seat_count",
			Msg:   fmt.Sprintf("must be positive, got %d", seatCount),
			Err:   entity.ErrInvalidSeatSelection,
		}
	}

	departure, err := s.departures.Get(ctx, departureID)
	if err != nil {
		return pricing.Quote{}, decimal.Zero, err
	}

	quote, err := s.quote(ctx, departure)
	if err != nil {
		return pricing.Quote{}, decimal.Zero, err
	}

	return quote, quote.Fare.Mul(decimal.NewFromInt(int64(seatCount))), nil
}

func (s *Service) quote(ctx context.Context, departure entity.Departure) (pricing.Quote, error) {
	rules, err := s.rules.ActiveRules(ctx, departure.RouteID)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("could not load pricing rules for route %s: %w", departure.RouteID, err)
	}

	return s.evaluator.Quote(departure.BaseFare, departure.DepartsAt, departure.RouteID, rules), nil
}

func (s *Service) percentages(ctx context.Context, userID, offerID string) (int, *int, error) {
	tierPct, err := s.loyalty.TierDiscountPct(ctx, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("could not get tier discount: %w", err)
	}

	if offerID == "" {
		return tierPct, nil, nil
	}

	offerPct, err := s.loyalty.ClaimedOfferPct(ctx, userID, offerID)
	if err != nil {
		if errors.Is(err, entity.ErrOfferNotFound) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("could not get claimed offer %s: %w", offerID, err)
	}

	return tierPct, &offerPct, nil
}

// compensate undoes a reservation (and a points redemption) after the booking
// could not be stored, and returns the original error.
func (s *Service) compensate(ctx context.Context, req CreateBookingRequest, seats []string, pointsRedeemed int, cause error) error {
	logger := log.FromContext(ctx).WithField("booking_id", req.BookingID)

	if _, err := s.inventory.Release(ctx, req.DepartureID, req.BookingID, seats); err != nil {
		logger.WithError(err).Error("Could not release seats of a failed booking")
		cause = errors.Join(cause, err)
	}
	if pointsRedeemed > 0 {
		if err := s.loyalty.RefundPoints(ctx, req.UserID, req.BookingID, pointsRedeemed); err != nil {
			logger.WithError(err).Error("Could not refund points of a failed booking")
			cause = errors.Join(cause, err)
		}
	}

	return cause
}

func (s *Service) publish(ctx context.Context, event any) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		metrics.SoftFailures.WithLabelValues("event_publish").Inc()
		log.FromContext(ctx).WithError(err).Warnf("Could not publish %T", event)
	}
}

func validateCreateRequest(req CreateBookingRequest) ([]string, error) {
	if req.UserID == "" {
		return nil, entity.ValidationError{Field: "user_id", Msg: "is required"}
	}
	if req.DepartureID == "" {
		return nil, entity.ValidationError{Field: "departure_id", Msg: "is required"}
	}
	if !ValidPaymentMethod(req.PaymentMethod) {
		return nil, entity.ValidationError{Field: "payment_method", Msg: fmt.Sprintf("unknown method %q", req.PaymentMethod)}
	}
	if req.LoyaltyPointsToUse < 0 {
		return nil, entity.ValidationError{
			Field: "loyalty_points_to_use",
			Msg:   "must not be negative",
			Err:   entity.ErrInvalidDiscountInput,
		}
	}

	return inventory.NormalizeSeatNames(req.Seats)
}

func ValidPaymentMethod(method entity.PaymentMethod) bool {
	switch method {
	case entity.PaymentCash, entity.PaymentTransfer, entity.PaymentQRIS, entity.PaymentEWallet:
		return true
	default:
		return false
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
