//go:build integration

package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/db"
	"github.com/bairdservice/baird-backend/pkg/migrate"
)

// EnvPostgresDSN points integration tests at an existing database instead of a container.
const EnvPostgresDSN = "BAIRD_TEST_PG_DSN"

// OpenPostgres returns a migrated Postgres 16 database, started in a
// container unless BAIRD_TEST_PG_DSN is set.
func OpenPostgres(t testing.TB) *db.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv(EnvPostgresDSN)
	if dsn == "" {
		container, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("baird"),
			postgres.WithUsername("baird"),
			postgres.WithPassword("baird"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("start postgres container: %v", err)
		}
		t.Cleanup(func() {
			_ = container.Terminate(context.Background())
		})
		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("postgres connection string: %v", err)
		}
	}

	client, err := db.New(ctx, config.DBConfig{DSN: dsn, MaxOpenConns: 20, MaxIdleConns: 10}, nil)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if err := migrate.Up(ctx, sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}
