package postgres

import (
	"context"
	"time"

	"github.com/Temutjin2k/delivery-tracking/pkg/metrics"
	"github.com/Temutjin2k/delivery-tracking/pkg/trm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const metricsService = "delivery-service"

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// TxorDB returns the transaction stored in ctx by trm, or the pool.
func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	tx, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	if !ok {
		return db
	}
	return tx
}

// observe is deferred with a pointer to the named error result.
func observe(op string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery(metricsService, op, *err, time.Since(start))
}
