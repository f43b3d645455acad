package config

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{"TRACKING_PUBLISH_WINDOW": "3s"}),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.Tracking.PublishWindow != 3*time.Second {
		t.Errorf("publish window = %s", cfg.Tracking.PublishWindow)
	}
	if cfg.Tracking.UpgradeAfter != time.Minute || cfg.Tracking.MaxRetries != 2 || !cfg.Tracking.LeadingSend {
		t.Errorf("unexpected tracking defaults: %+v", cfg.Tracking)
	}
	if cfg.Tracking.FallbackMaximumAge != 10*time.Minute {
		t.Errorf("fallback maximum age = %s", cfg.Tracking.FallbackMaximumAge)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Services.DeliveryService != "3000" {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Redis, cfg.Services)
	}
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p@ss", Database: "delivery",
		MaxConns: 10, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute,
	}

	u, err := url.Parse(c.GetDSN())
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" {
		t.Errorf("password = %q", pw)
	}
	if u.Host != "db:5432" || u.Path != "/delivery" {
		t.Errorf("unexpected dsn %s", u)
	}
	if q := u.Query(); q.Get("pool_max_conns") != "10" || q.Get("pool_max_conn_lifetime") != "1h0m0s" {
		t.Errorf("unexpected pool settings %v", q)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"service needs nothing", Config{Mode: types.DeliveryService}, nil},
		{"agent needs delivery", Config{Mode: types.DriverAgent}, ErrDeliveryIDNotProvided},
		{"viewer ok", Config{Mode: types.TrackingViewer, DeliveryID: "d-1"}, nil},
		{"set-status needs status", Config{Mode: types.SetStatus, DeliveryID: "d-1"}, ErrStatusNotProvided},
		{"token needs subject", Config{Mode: types.IssueToken, Role: types.RoleDriver}, ErrSubjectNotProvided},
		{"token needs valid role", Config{Mode: types.IssueToken, Subject: "x", Role: "ROOT"}, types.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
