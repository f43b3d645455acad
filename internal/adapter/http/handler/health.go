package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type Health struct {
	serviceName string
	startedAt   time.Time
	checks      map[string]HealthCheck
	log         logger.Logger
}

func NewHealth(serviceName string, checks map[string]HealthCheck, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		startedAt:   time.Now(),
		checks:      checks,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Reports the service and the state of its dependencies
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func (h *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	code, status := http.StatusOK, "available"
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](checkCtx); err != nil {
			h.log.Warn(ctx, "dependency unhealthy", "dependency", name, "error", err.Error())
			deps[name] = "unavailable"
			code, status = http.StatusServiceUnavailable, "degraded"
			continue
		}
		deps[name] = "ok"
	}

	response := envelope{
		"status": status,
		"system_info": map[string]any{
			"service-name": h.serviceName,
			"uptime":       time.Since(h.startedAt).Round(time.Second).String(),
		},
	}
	if len(deps) > 0 {
		response["dependencies"] = deps
	}

	if err := writeJSON(w, code, response, nil); err != nil {
		h.log.Error(ctx, "healthcheck", err)
	}
}
