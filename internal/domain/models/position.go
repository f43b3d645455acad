package models

import (
	"math"
	"time"
)

// Position is a single driver location fix. Values are immutable once produced.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"` // meters
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether all coordinates are finite and within range.
func (p Position) Valid() bool {
	for _, v := range []float64{p.Latitude, p.Longitude, p.Accuracy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return false
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return false
	}
	return p.Accuracy >= 0 && !p.Timestamp.IsZero()
}

// RawPosition is a fix as reported by the device primitive. Any nil field means the
// fix is incomplete and must be discarded.
type RawPosition struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Accuracy  *float64   `json:"accuracy"`
	Timestamp *time.Time `json:"timestamp"`
}

// Position converts the raw fix. ok is false when a field is missing or the result is invalid.
func (r RawPosition) Position() (Position, bool) {
	if r.Latitude == nil || r.Longitude == nil || r.Accuracy == nil || r.Timestamp == nil {
		return Position{}, false
	}
	p := Position{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Accuracy:  *r.Accuracy,
		Timestamp: *r.Timestamp,
	}
	return p, p.Valid()
}

// Location is a fixed point such as a restaurant or a customer address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}
