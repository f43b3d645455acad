package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	a.setupSwaggerRoutes()
	a.setupMetricsRoute()

	switch a.mode {
	case types.DeliveryService:
		a.setupDeliveryRoutes()
	}
}

// setupDeliveryRoutes setups routes for the delivery service
func (a *API) setupDeliveryRoutes() {
	routes, m := a.routes, a.m

	a.mux.Handle("POST /deliveries/{id}/update-location", m.RequireRoles(routes.delivery.UpdateLocation, types.RoleDriver))                     // Driver pushes a location
	a.mux.Handle("POST /deliveries/{id}/update-status", m.RequireRoles(routes.delivery.UpdateStatus, types.RoleDriver, types.RoleDispatcher)) // Status transition
	a.mux.Handle("GET /deliveries/{id}", m.RequireRoles(routes.delivery.Get))                                                                   // Current projection
	a.mux.Handle("GET /ws/deliveries/{id}", m.RequireRoles(routes.tracking.Subscribe))                                                          // Live tracking stream
}

// setupSwaggerRoutes configures Swagger UI endpoints based on service mode
func (a *API) setupSwaggerRoutes() {
	var instanceName string

	switch a.mode {
	case types.DeliveryService:
		instanceName = "delivery"
	default:
		a.log.Debug(wrap.WithAction(context.Background(), "setup swagger routes"), "no swagger docs for mode", "mode", a.mode)
		return
	}

	// Swagger UI endpoint
	swaggerURL := httpSwagger.InstanceName(instanceName)
	a.mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func (a *API) setupMetricsRoute() {
	a.mux.Handle("/metrics", promhttp.Handler())
}
