package db

import (
	"context"
	"flag"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	db        *sqlx.DB
	dbErr     error
	getDbOnce sync.Once
)

// GetDb connects to POSTGRES_URL once per test binary and creates the schema.
// Tests are skipped when POSTGRES_URL is not set.
func GetDb(t *testing.T) *sqlx.DB {
	t.Helper()

	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL is not set")
	}

	getDbOnce.Do(func() {
		db, dbErr = sqlx.Open("postgres", url)
		if dbErr != nil {
			return
		}
		dbErr = InitializeDatabaseSchema(db)
	})
	require.NoError(t, dbErr)

	return db
}

func StartPostgresContainer() (testcontainers.Container, string) {
	ctx := context.Background()
	dbName := "db"
	dbUser := "user"
	dbPassword := "password"

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	if err != nil {
		panic(err)
	}

	return postgresContainer, connStr
}

// RunWithPostgres is meant to be called from TestMain. It starts a Postgres
// container unless POSTGRES_URL is already set or the tests run with -short.
func RunWithPostgres(m *testing.M) int {
	flag.Parse()
	if os.Getenv("POSTGRES_URL") != "" || testing.Short() {
		return m.Run()
	}

	ctx := context.Background()
	container, url := StartPostgresContainer()
	defer func() {
		_ = container.Terminate(ctx)
	}()

	os.Setenv("POSTGRES_URL", url)

	return m.Run()
}
