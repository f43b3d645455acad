package models

import (
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// TrackingSession is a snapshot of the driver-side sampling state.
type TrackingSession struct {
	DeliveryID            string             `json:"delivery_id"`
	Tier                  types.AccuracyTier `json:"tier"`
	RetryCount            int                `json:"retry_count"`
	LastPosition          *Position          `json:"last_position,omitempty"`
	ManualRefreshRequired bool               `json:"manual_refresh_required"`
	Running               bool               `json:"running"`
	StartedAt             time.Time          `json:"started_at"`
}

// Credentials is the session passed explicitly to anything that talks to the remote service.
type Credentials struct {
	Token string
}

func (c Credentials) Empty() bool {
	return c.Token == ""
}
