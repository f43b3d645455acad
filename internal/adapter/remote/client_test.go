package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

func TestPushLocation(t *testing.T) {
	fix := models.Position{Latitude: 43.2, Longitude: 76.9, Accuracy: 7, Timestamp: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)}

	var got locationPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/deliveries/d-1/update-location" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"delivery_id":"d-1","updated_at":"2026-02-03T04:05:07Z"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", models.Credentials{Token: "tok"})
	if err := c.PushLocation(context.Background(), "d-1", fix); err != nil {
		t.Fatalf("push: %v", err)
	}
	if !got.Location.Timestamp.Equal(fix.Timestamp) || got.Location.Latitude != fix.Latitude {
		t.Fatalf("server got %+v", got.Location)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"session expired"}`, types.ErrSessionExpired},
		{"forbidden", http.StatusForbidden, `{"error":"action forbidden"}`, types.ErrForbidden},
		{"not found", http.StatusNotFound, `{"error":"delivery not found"}`, types.ErrDeliveryNotFound},
		{"terminal", http.StatusConflict, `{"error":"delivery is in a terminal status"}`, types.ErrDeliveryTerminal},
		{"transition", http.StatusUnprocessableEntity, `{"error":{"message":"invalid status transition","from":"delivered","to":"pending"}}`, types.ErrInvalidTransition},
		{"unknown status", http.StatusUnprocessableEntity, `{"error":"unknown delivery status"}`, types.ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, models.Credentials{Token: "tok"}).UpdateStatus(context.Background(), "d-1", types.StatusPending)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var se *HTTPStatusError
			if !errors.As(err, &se) || se.Code != tt.status {
				t.Fatalf("expected HTTPStatusError with code %d, got %v", tt.status, err)
			}
		})
	}
}

func TestGetDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/deliveries/d-2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"delivery_id":"d-2","status":"out_for_delivery","updated_at":"2026-02-03T04:05:07Z",
			"last_known_driver_location":{"latitude":1,"longitude":2,"accuracy":3,"timestamp":"2026-02-03T04:05:06Z"}}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, models.Credentials{Token: "tok"}).GetDelivery(context.Background(), "d-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Status != types.StatusOutForDelivery || p.LastKnownDriverLocation == nil || p.LastKnownDriverLocation.Accuracy != 3 {
		t.Fatalf("unexpected projection: %+v", p)
	}
}

func TestClient_EmptyCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	err := New(srv.URL, models.Credentials{}).PushLocation(context.Background(), "d-1", models.Position{})
	if !errors.Is(err, types.ErrSessionExpired) {
		t.Fatalf("got %v", err)
	}
	if called {
		t.Fatal("request sent without credentials")
	}
}
