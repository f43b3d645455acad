package dto

import (
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
)

type LocationReq struct {
	Latitude  *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  *float64   `json:"accuracy" validate:"required,gte=0"`
	Timestamp *time.Time `json:"timestamp" validate:"required"`
}

type UpdateLocationReq struct {
	Location *LocationReq `json:"location" validate:"required"`
}

func (r *UpdateLocationReq) Validate() map[string]string {
	return Validate(r)
}

func (r *UpdateLocationReq) ToModel() models.Position {
	return models.Position{
		Latitude:  *r.Location.Latitude,
		Longitude: *r.Location.Longitude,
		Accuracy:  *r.Location.Accuracy,
		Timestamp: r.Location.Timestamp.UTC(),
	}
}

type UpdateStatusReq struct {
	Status string `json:"status" validate:"required,max=64"`
}

func (r *UpdateStatusReq) Validate() map[string]string {
	return Validate(r)
}
