package middleware

import (
	"net/http"
	"time"

	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

// Logging logs every finished request. Server errors are logged as warnings,
// everything else at debug level.
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := record(w)

		next.ServeHTTP(rec, r)

		ctx := wrap.WithAction(r.Context(), "http_request")
		args := []any{
			"method", r.Method,
			"route", route(r),
			"status", rec.Status(),
			"duration", time.Since(start).String(),
			"remote_addr", r.RemoteAddr,
		}
		if rec.Status() >= http.StatusInternalServerError {
			m.log.Warn(ctx, "request failed", args...)
			return
		}
		m.log.Debug(ctx, "request completed", args...)
	})
}
