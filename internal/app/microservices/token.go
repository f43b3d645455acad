package microservices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Temutjin2k/delivery-tracking/config"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/auth"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
)

// TokenIssuer prints a signed access token as JSON to stdout.
type TokenIssuer struct {
	subject string
	role    types.Role
	tokens  *auth.TokenService
	out     io.Writer

	log logger.Logger
}

func NewToken(_ context.Context, cfg config.Config, log logger.Logger) (*TokenIssuer, error) {
	return &TokenIssuer{
		subject: cfg.Subject,
		role:    cfg.Role,
		tokens:  auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, clock.Real()),
		out:     os.Stdout,
		log:     log,
	}, nil
}

func (t *TokenIssuer) Start(ctx context.Context) error {
	token, err := t.tokens.Issue(ctx, t.subject, t.role)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	enc := json.NewEncoder(t.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(token); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	t.log.Debug(ctx, "token issued", "subject", t.subject, "role", string(t.role), "expires_at", token.ExpiresAt)
	return nil
}
