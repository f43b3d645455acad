package models

import (
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// Delivery is owned by the remote delivery service.
type Delivery struct {
	ID                      string               `json:"id"`
	Status                  types.DeliveryStatus `json:"status"`
	DriverID                *string              `json:"driver_id,omitempty"`
	RestaurantLocation      Location             `json:"restaurant_location"`
	CustomerLocation        Location             `json:"customer_location"`
	LastKnownDriverLocation *Position            `json:"last_known_driver_location,omitempty"`
	CreatedAt               time.Time            `json:"created_at"`
	UpdatedAt               time.Time            `json:"updated_at"`
}

// Projection returns the tracking view of the delivery.
func (d *Delivery) Projection() DeliveryProjection {
	p := DeliveryProjection{
		DeliveryID: d.ID,
		Status:     d.Status,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.LastKnownDriverLocation != nil {
		loc := *d.LastKnownDriverLocation
		p.LastKnownDriverLocation = &loc
	}
	return p
}

// DeliveryProjection is the tracking core's view of a delivery. It is passed around by value.
type DeliveryProjection struct {
	DeliveryID              string               `json:"delivery_id"`
	Status                  types.DeliveryStatus `json:"status"`
	LastKnownDriverLocation *Position            `json:"last_known_driver_location,omitempty"`
	UpdatedAt               time.Time            `json:"updated_at"`
}

// Apply folds a tracking update into the projection and returns the result.
func (p DeliveryProjection) Apply(u TrackingUpdate) DeliveryProjection {
	if u.DriverLocation != nil {
		loc := *u.DriverLocation
		p.LastKnownDriverLocation = &loc
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Timestamp.After(p.UpdatedAt) {
		p.UpdatedAt = u.Timestamp
	}
	return p
}

// DeliveryEvent is an audit row stored for every accepted change.
type DeliveryEvent struct {
	ID         string              `json:"id"`
	DeliveryID string              `json:"delivery_id"`
	Type       types.TrackingEvent `json:"event_type"`
	Data       []byte              `json:"event_data"`
	CreatedAt  time.Time           `json:"created_at"`
}

// LocationReceipt acknowledges an accepted driver location.
type LocationReceipt struct {
	DeliveryID string    `json:"delivery_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}
