package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

// Recover turns a handler panic into a 500 and logs it with its stack.
// A panic after the response started only closes the connection.
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := record(w)
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}

			ctx := wrap.WithAction(r.Context(), "recover")
			m.log.Error(ctx, "panic while serving request", fmt.Errorf("panic: %v", p),
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			if rec.status != 0 {
				return
			}
			rec.Header().Set("Connection", "close")
			errorResponse(rec, http.StatusInternalServerError, "internal server error")
		}()

		next.ServeHTTP(rec, r)
	})
}
