package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

// Auth verifies the bearer token and injects its claims into the context.
// Requests without an Authorization header pass through without claims;
// routes that need a caller are guarded by RequireRoles.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := h.auth.Validate(ctx, token)
		if err != nil {
			h.log.Warn(wrap.WithAction(ctx, "authenticate"), "rejected bearer token", "error", err.Error())
			if errors.Is(err, types.ErrSessionExpired) {
				errorResponse(w, http.StatusUnauthorized, "session expired")
				return
			}
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = wrap.WithUserID(models.WithClaims(ctx, claims), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles allows only authenticated callers with one of the given roles.
// With no roles any authenticated caller is allowed.
// Usage: mux.Handle("POST /deliveries/{id}/update-location", m.RequireRoles(h.UpdateLocation, types.RoleDriver))
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.Role) http.Handler {
	allowed := make(map[types.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := models.ClaimsFromContext(r.Context())
		if claims == nil {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[claims.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
