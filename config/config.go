package config

import (
	"time"

	"github.com/jessevdk/go-flags"
)

type Config struct {
	HTTPAddr       string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"ops server address (health and metrics)"`
	PostgresURL    string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address used for streams and seat locks"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint, tracing is disabled when empty"`
	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error"`

	Lock LockConfig `group:"Seat lock" namespace:"lock" env-namespace:"LOCK"`
}

type LockConfig struct {
	// Backend "local" only serializes reservations inside one process.
	Backend string        `long:"backend" env:"BACKEND" default:"redis" choice:"redis" choice:"local"`
	TTL     time.Duration `long:"ttl" env:"TTL" default:"10s" description:"expiry of a distributed departure lock"`
}

// Parse reads the configuration from args and the environment.
func Parse(args []string) (Config, error) {
	var cfg Config
	if _, err := flags.NewParser(&cfg, flags.Default).ParseArgs(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
