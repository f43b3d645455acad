package dto

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateLocationReq_Validate(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		req     UpdateLocationReq
		invalid []string
	}{
		{
			name: "valid",
			req: UpdateLocationReq{Location: &LocationReq{
				Latitude: ptr(43.2), Longitude: ptr(76.9), Accuracy: ptr(5.0), Timestamp: &now,
			}},
		},
		{
			name:    "missing location",
			req:     UpdateLocationReq{},
			invalid: []string{"location"},
		},
		{
			name: "out of range",
			req: UpdateLocationReq{Location: &LocationReq{
				Latitude: ptr(91.0), Longitude: ptr(-181.0), Accuracy: ptr(-1.0), Timestamp: &now,
			}},
			invalid: []string{"location.latitude", "location.longitude", "location.accuracy"},
		},
		{
			name: "missing timestamp",
			req: UpdateLocationReq{Location: &LocationReq{
				Latitude: ptr(0.0), Longitude: ptr(0.0), Accuracy: ptr(0.0),
			}},
			invalid: []string{"location.timestamp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate()
			if len(errs) != len(tt.invalid) {
				t.Fatalf("got %d errors %v, want %v", len(errs), errs, tt.invalid)
			}
			for _, field := range tt.invalid {
				if _, ok := errs[field]; !ok {
					t.Errorf("expected error for %q, got %v", field, errs)
				}
			}
		})
	}
}

func TestUpdateStatusReq_Validate(t *testing.T) {
	if errs := (&UpdateStatusReq{}).Validate(); errs["status"] != "must be provided" {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs := (&UpdateStatusReq{Status: "Out for delivery"}).Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
