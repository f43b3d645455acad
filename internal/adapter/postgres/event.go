package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

type DeliveryEventRepo struct {
	db *pgxpool.Pool
}

func NewDeliveryEventRepo(db *pgxpool.Pool) *DeliveryEventRepo {
	return &DeliveryEventRepo{db: db}
}

// CreateEvent inserts a new delivery audit event.
func (r *DeliveryEventRepo) CreateEvent(ctx context.Context, deliveryID string, eventType types.TrackingEvent, eventData json.RawMessage) (err error) {
	const op = "DeliveryEventRepo.CreateEvent"
	defer observe(op, time.Now(), &err)

	query := `INSERT INTO delivery_events (id, delivery_id, event_type, event_data)
			  VALUES ($1, $2, $3, $4);`

	if _, err = TxorDB(ctx, r.db).Exec(ctx, query, uuid.NewString(), deliveryID, eventType.String(), eventData); err != nil {
		ctx = wrap.WithAction(ctx, types.ActionDatabaseTransactionFailed)
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}
