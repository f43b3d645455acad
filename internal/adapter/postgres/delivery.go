package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

type DeliveryRepo struct {
	db *pgxpool.Pool
}

func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

const selectDelivery = `
	SELECT
		id, status, driver_id,
		restaurant_address, restaurant_latitude, restaurant_longitude,
		customer_address, customer_latitude, customer_longitude,
		last_latitude, last_longitude, last_accuracy, last_located_at,
		created_at, updated_at
	FROM deliveries
	WHERE id = $1`

// Get returns the delivery or types.ErrDeliveryNotFound.
func (r *DeliveryRepo) Get(ctx context.Context, id string) (*models.Delivery, error) {
	return r.get(ctx, "DeliveryRepo.Get", selectDelivery+";", id)
}

// GetForUpdate locks the delivery row until the surrounding transaction ends.
func (r *DeliveryRepo) GetForUpdate(ctx context.Context, id string) (*models.Delivery, error) {
	return r.get(ctx, "DeliveryRepo.GetForUpdate", selectDelivery+" FOR UPDATE;", id)
}

func (r *DeliveryRepo) get(ctx context.Context, op, query, id string) (d *models.Delivery, err error) {
	defer observe(op, time.Now(), &err)

	var (
		delivery models.Delivery
		status   string
		lat, lon *float64
		acc      *float64
		locAt    *time.Time
	)
	err = TxorDB(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&delivery.ID, &status, &delivery.DriverID,
		&delivery.RestaurantLocation.Address, &delivery.RestaurantLocation.Latitude, &delivery.RestaurantLocation.Longitude,
		&delivery.CustomerLocation.Address, &delivery.CustomerLocation.Latitude, &delivery.CustomerLocation.Longitude,
		&lat, &lon, &acc, &locAt,
		&delivery.CreatedAt, &delivery.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDeliveryNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	delivery.Status = types.DeliveryStatus(status)
	if lat != nil && lon != nil && acc != nil && locAt != nil {
		delivery.LastKnownDriverLocation = &models.Position{
			Latitude:  *lat,
			Longitude: *lon,
			Accuracy:  *acc,
			Timestamp: *locAt,
		}
	}
	return &delivery, nil
}

// UpdateStatus stores the new status and returns the update time.
func (r *DeliveryRepo) UpdateStatus(ctx context.Context, id string, status types.DeliveryStatus) (updatedAt time.Time, err error) {
	const op = "DeliveryRepo.UpdateStatus"
	defer observe(op, time.Now(), &err)

	query := `
		UPDATE deliveries
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at;`

	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, id, status.String()).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, types.ErrDeliveryNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return time.Time{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return updatedAt, nil
}

// UpdateLocation stores the last known driver location and returns the update time.
func (r *DeliveryRepo) UpdateLocation(ctx context.Context, id string, pos models.Position) (updatedAt time.Time, err error) {
	const op = "DeliveryRepo.UpdateLocation"
	defer observe(op, time.Now(), &err)

	query := `
		UPDATE deliveries
		SET last_latitude = $2, last_longitude = $3, last_accuracy = $4, last_located_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at;`

	if err = TxorDB(ctx, r.db).QueryRow(ctx, query, id, pos.Latitude, pos.Longitude, pos.Accuracy, pos.Timestamp).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, types.ErrDeliveryNotFound
		}
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return time.Time{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return updatedAt, nil
}
