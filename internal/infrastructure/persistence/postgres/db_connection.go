// Package postgres provides PostgreSQL database connection management for the item service.
// It implements connection pooling, health checks, and lifecycle management using pgx driver.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/turtacn/itemsvc/internal/config"
	"github.com/turtacn/itemsvc/pkg/constants"
	"github.com/turtacn/itemsvc/pkg/errors"
	"github.com/turtacn/itemsvc/pkg/logger"
)

// DBConnection manages PostgreSQL database connection pool lifecycle.
// Pool size and the acquire timeout bound how long a request may wait for a connection.
type DBConnection struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	logger         logger.Logger
}

// NewDBConnection creates a new PostgreSQL connection manager instance.
// It initializes the pool from cfg and performs an initial ping bounded by cfg.ConnectTimeout.
//
// Parameters:
//   - ctx: Context for connection timeout control
//   - cfg: Database configuration including URL and pool settings
//   - log: Logger instance for connection lifecycle events
//
// Returns:
//   - *DBConnection: Initialized connection manager
//   - error: Connection establishment error if any
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, errors.ErrInvalidConfig("database config is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		// The parse error may echo the URL, which carries credentials.
		return nil, errors.ErrInvalidConfig("database.url is not a valid Postgres connection string")
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	log.Info(ctx, "Initializing PostgreSQL connection pool", logger.Fields{
		"host":      poolConfig.ConnConfig.Host,
		"port":      poolConfig.ConnConfig.Port,
		"database":  poolConfig.ConnConfig.Database,
		"max_conns": cfg.MaxConns,
		"min_conns": cfg.MinConns,
	})

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		log.Error(ctx, "Failed to create database connection pool", err)
		return nil, errors.ErrUpstreamUnavailable("failed to create database connection pool").WithCause(err)
	}

	dbConn := NewDBConnectionFromPool(pool, cfg.AcquireTimeout, log)

	if err := dbConn.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	stats := dbConn.Stats()
	log.Info(ctx, "PostgreSQL connection pool initialized successfully", logger.Fields{
		"total_conns": stats.TotalConns(),
		"idle_conns":  stats.IdleConns(),
	})

	return dbConn, nil
}

// NewDBConnectionFromPool wraps an existing pool.
func NewDBConnectionFromPool(pool *pgxpool.Pool, acquireTimeout time.Duration, log logger.Logger) *DBConnection {
	return &DBConnection{pool: pool, acquireTimeout: acquireTimeout, logger: log}
}

// Acquire takes a connection from the pool, waiting at most the configured acquire timeout.
// The caller must Release the connection.
func (db *DBConnection) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, db.acquireTimeout)
	defer cancel()
	return db.pool.Acquire(acquireCtx)
}

// Ping verifies database connectivity and responsiveness.
func (db *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultPingTimeout)
	defer cancel()

	startTime := time.Now()
	if err := db.pool.Ping(pingCtx); err != nil {
		stats := db.Stats()
		db.logger.Warn(ctx, "Database ping failed", logger.Fields{
			"error":          err.Error(),
			"total_conns":    stats.TotalConns(),
			"acquired_conns": stats.AcquiredConns(),
		})
		return errors.ErrUpstreamUnavailable("database unreachable").WithCause(err)
	}

	db.logger.Debug(ctx, "Database ping successful", logger.Fields{
		"latency_ms": time.Since(startTime).Milliseconds(),
	})
	return nil
}

// Stats returns current connection pool statistics.
func (db *DBConnection) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

// Close gracefully shuts down the connection pool.
// It waits for acquired connections to be released before closing.
func (db *DBConnection) Close() {
	stats := db.Stats()
	db.logger.Info(context.Background(), "Closing PostgreSQL connection pool", logger.Fields{
		"total_conns":    stats.TotalConns(),
		"acquired_conns": stats.AcquiredConns(),
	})

	db.pool.Close()

	db.logger.Info(context.Background(), "PostgreSQL connection pool closed successfully")
}
