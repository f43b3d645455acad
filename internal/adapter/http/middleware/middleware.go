package middleware

import (
	"context"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
)

// AuthService verifies bearer tokens. Optional for services without protected routes.
type AuthService interface {
	Validate(ctx context.Context, token string) (*models.Claims, error)
}

// Middleware holds what the handlers wrapping the mux share: the token verifier,
// the service label used in metrics, and the logger.
type Middleware struct {
	auth    AuthService
	service string
	log     logger.Logger
}

func NewMiddleware(auth AuthService, service string, log logger.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		service: service,
		log:     log,
	}
}
