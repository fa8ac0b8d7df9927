//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/turtacn/itemsvc/internal/config"
	"github.com/turtacn/itemsvc/migrations"
	"github.com/turtacn/itemsvc/pkg/errors"
	"github.com/turtacn/itemsvc/pkg/logger"
)

func TestItemRepository_Postgres(t *testing.T) {
	if os.Getenv("SKIP_DOCKER_TESTS") == "true" {
		t.Skip("Skipping Docker-dependent tests")
	}

	ctx := context.Background()
	migration, err := filepath.Abs("../../../../migrations/0001_items.sql")
	require.NoError(t, err)

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("appdb"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.WithInitScripts(migration),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgContainer) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := NewDBConnection(ctx, &config.DatabaseConfig{
		URL:            connStr,
		MaxConns:       2,
		ConnectTimeout: 10 * time.Second,
		AcquireTimeout: time.Second,
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	defer db.Close()

	repo := NewItemRepository(db, noop.NewTracerProvider().Tracer("test"), logger.NewNoopLogger())

	t.Run("migrations are idempotent", func(t *testing.T) {
		applied, err := db.ApplyMigrations(ctx, migrations.FS)
		require.NoError(t, err)
		assert.Equal(t, 1, applied)
	})

	t.Run("existing item", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			item, err := repo.FindByID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(1), item.ID)
			assert.Equal(t, "Hello from Postgres", item.Name)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 999999)
		assert.ErrorIs(t, err, errors.ErrNotFoundKind)
	})

	t.Run("id beyond int4 range", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 2147483648)
		assert.ErrorIs(t, err, errors.ErrNotFoundKind)

		item, err := repo.FindByID(ctx, 2147483647)
		assert.Nil(t, item)
		assert.ErrorIs(t, err, errors.ErrNotFoundKind)
	})

	t.Run("store outage", func(t *testing.T) {
		timeout := 5 * time.Second
		require.NoError(t, pgContainer.Stop(ctx, &timeout))

		_, err := repo.FindByID(ctx, 1)
		assert.ErrorIs(t, err, errors.ErrUpstreamKind)
		assert.ErrorIs(t, db.Ping(ctx), errors.ErrUpstreamKind)
	})
}
