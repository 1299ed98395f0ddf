package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"travel/config"
	"travel/pkg"
	"travel/service"
	"travel/tracing"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Init(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logrus.WithError(err).Error("Service stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	traceProvider, err := tracing.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			logrus.WithError(err).Error("Could not flush traces")
		}
	}()

	db, err := pkg.NewPostgresDB(cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := pkg.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()

	svc, err := service.New(db, redisClient, cfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	return svc.Run(ctx)
}
