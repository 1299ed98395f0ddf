package pkg

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// NewPostgresDB opens a traced connection pool. Every query becomes a span
// of the caller's trace.
func NewPostgresDB(url string) (*sqlx.DB, error) {
	traceDB, err := otelsql.Open("postgres", url,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName("travel"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not open postgres: %w", err)
	}

	return sqlx.NewDb(traceDB, "postgres"), nil
}
