package middleware

import (
	"net/http"
	"time"

	"github.com/Temutjin2k/delivery-tracking/pkg/metrics"
)

// Metrics records request count, latency and in-flight requests per route.
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		inFlight := metrics.HttpRequestsInFlight.WithLabelValues(m.service)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		rec := record(w)

		next.ServeHTTP(rec, r)

		// the mux sets r.Pattern while routing the same request value
		metrics.RecordHTTPMetrics(m.service, r.Method, route(r), rec.Status(), time.Since(start))
	})
}
