package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	pg "github.com/Temutjin2k/delivery-tracking/pkg/postgres"
)

// LocationHistoryRepo keeps every accepted driver fix of a delivery.
type LocationHistoryRepo struct {
	db *pgxpool.Pool
}

func NewLocationHistoryRepo(db *pgxpool.Pool) *LocationHistoryRepo {
	return &LocationHistoryRepo{db: db}
}

func (r *LocationHistoryRepo) Add(ctx context.Context, deliveryID string, driverID *string, pos models.Position) (err error) {
	const op = "LocationHistoryRepo.Add"
	defer observe(op, time.Now(), &err)

	query := `
		INSERT INTO location_history (delivery_id, driver_id, latitude, longitude, accuracy_meters, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6);`

	if _, err = TxorDB(ctx, r.db).Exec(ctx, query, deliveryID, driverID, pos.Latitude, pos.Longitude, pos.Accuracy, pos.Timestamp); err != nil {
		if pg.IsForeignKeyViolation(err) {
			return fmt.Errorf("%s: %w", op, types.ErrDeliveryNotFound)
		}
		if pg.IsCheckViolation(err) {
			return fmt.Errorf("%s: %w", op, types.ErrInvalidPosition)
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}
