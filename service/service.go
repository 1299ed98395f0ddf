package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"travel/booking"
	"travel/config"
	"travel/db"
	"travel/db/bookings"
	"travel/db/departures"
	"travel/db/loyalty"
	"travel/db/rules"
	"travel/db/seats"
	"travel/http"
	"travel/inventory"
	"travel/pubsub"
	"travel/pubsub/bus"
	"travel/pubsub/command"
	"travel/pubsub/event"
)

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
	commandBus      *cqrs.CommandBus
	bookings        *booking.Service
}

func New(
	db *sqlx.DB,
	redisClient *redis.Client,
	cfg config.Config,
) (Service, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher, err := pubsub.NewRedisPublisher(redisClient, watermillLogger)
	if err != nil {
		return Service{}, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		return Service{}, fmt.Errorf("failed to create event bus: %w", err)
	}

	commandBus, err := bus.NewCommandBus(redisPublisher)
	if err != nil {
		return Service{}, fmt.Errorf("failed to create command bus: %w", err)
	}

	departuresRepo := departures.NewPostgresRepository(db)
	loyaltyRepo := loyalty.NewPostgresRepository(db)

	seatInventory := inventory.NewInventory(
		seats.NewPostgresRepository(db),
		departuresRepo,
		newLocker(redisClient, cfg.Lock),
	)

	bookingService := booking.NewService(
		departuresRepo,
		rules.NewPostgresRepository(db),
		loyaltyRepo,
		seatInventory,
		bookings.NewPostgresRepository(db),
		eventBus,
	)

	watermillRouter, err := pubsub.NewWatermillRouter(
		event.NewProcessorConfig(redisClient, watermillLogger),
		event.NewHandler(loyaltyRepo),
		command.NewProcessorConfig(redisClient, watermillLogger),
		command.NewHandler(eventBus, bookingService),
		watermillLogger,
	)
	if err != nil {
		return Service{}, fmt.Errorf("failed to create watermill router: %w", err)
	}

	return Service{
		db:              db,
		watermillRouter: watermillRouter,
		httpServer:      http.NewServer(cfg.HTTPAddr),
		commandBus:      commandBus,
		bookings:        bookingService,
	}, nil
}

func newLocker(redisClient *redis.Client, cfg config.LockConfig) inventory.Locker {
	if cfg.Backend == "local" {
		return inventory.NewLocalLocker()
	}
	return inventory.NewRedisLocker(redisClient, inventory.RedisLockerConfig{TTL: cfg.TTL})
}

func (s Service) CommandBus() *cqrs.CommandBus {
	return s.commandBus
}

func (s Service) Bookings() *booking.Service {
	return s.bookings
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the service must not report healthy before the router is ready
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
