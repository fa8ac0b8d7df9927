package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/itemsvc/internal/domain/models"
	"github.com/turtacn/itemsvc/internal/domain/repository"
	"github.com/turtacn/itemsvc/internal/infrastructure/monitoring"
	"github.com/turtacn/itemsvc/pkg/errors"
	"github.com/turtacn/itemsvc/pkg/logger"
)

const findItemByIDSQL = `SELECT id, name FROM items WHERE id = $1`

// ItemRepoImpl implements ItemRepository as a single-row point lookup.
type ItemRepoImpl struct {
	db     *DBConnection
	tracer trace.Tracer
	logger logger.Logger
}

// NewItemRepository creates a new PostgreSQL-based item repository instance.
func NewItemRepository(db *DBConnection, tracer trace.Tracer, log logger.Logger) repository.ItemRepository {
	return &ItemRepoImpl{
		db:     db,
		tracer: tracer,
		logger: log,
	}
}

// FindByID retrieves an item by its primary key.
func (r *ItemRepoImpl) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	ctx, span := r.tracer.Start(ctx, "items.find_by_id",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.Int64("item.id", id),
		),
	)
	defer span.End()

	if id > models.MaxItemID {
		r.logger.Debug(ctx, "Item id outside column range", logger.Fields{"item_id": id})
		return nil, errors.ErrNotFound(fmt.Sprintf("item %d not found", id))
	}

	startTime := time.Now()

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		monitoring.RecordError(span, err)
		r.logger.Warn(ctx, "Failed to acquire database connection", logger.Fields{
			"item_id": id,
			"error":   err.Error(),
		})
		return nil, errors.ErrUpstreamUnavailable("data store unavailable").WithCause(err)
	}
	defer conn.Release()

	var item models.Item
	err = conn.QueryRow(ctx, findItemByIDSQL, id).Scan(&item.ID, &item.Name)
	if stderrors.Is(err, pgx.ErrNoRows) {
		r.logger.Debug(ctx, "Item not found", logger.Fields{"item_id": id})
		return nil, errors.ErrNotFound(fmt.Sprintf("item %d not found", id))
	}
	if err != nil {
		monitoring.RecordError(span, err)
		svcErr := classifyStoreError(err)
		r.logger.Error(ctx, "Failed to retrieve item by ID", err, logger.Fields{
			"item_id":    id,
			"error_code": string(svcErr.Code()),
		})
		return nil, svcErr
	}

	r.logger.Debug(ctx, "Item retrieved", logger.Fields{
		"item_id":    id,
		"latency_ms": time.Since(startTime).Milliseconds(),
	})
	return &item, nil
}

// classifyStoreError separates outages (retryable, 503) from faults in the query itself (500).
// Only recognised connectivity and timeout failures count as outages; anything else, including
// parameter encode and scan errors, is an internal fault.
func classifyStoreError(err error) errors.ServiceError {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if unavailableSQLState(pgErr.Code) {
			return errors.ErrUpstreamUnavailable("data store unavailable").WithCause(err)
		}
		return errors.ErrInternalFault("item lookup failed").WithCause(err)
	}

	if isConnectivityError(err) {
		return errors.ErrUpstreamUnavailable("data store unavailable").WithCause(err)
	}
	return errors.ErrInternalFault("item lookup failed").WithCause(err)
}

func isConnectivityError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if stderrors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	return stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, net.ErrClosed)
}

// unavailableSQLState covers connection_exception (08), insufficient_resources (53),
// query_canceled and the server shutdown codes.
func unavailableSQLState(code string) bool {
	if strings.HasPrefix(code, "08") || strings.HasPrefix(code, "53") {
		return true
	}
	switch code {
	case "57014", "57P01", "57P02", "57P03":
		return true
	}
	return false
}
