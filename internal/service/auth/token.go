// Package auth issues and verifies the bearer tokens used between the driver
// agent, tracking viewers and the delivery service. Login flows live elsewhere.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

const issuer = "delivery-tracking"

type customClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret    []byte
	AccessTTL time.Duration
	clk       clock.Clock
}

func NewTokenService(secret string, accessTTL time.Duration, clk clock.Clock) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		AccessTTL: accessTTL,
		clk:       clk,
	}
}

// Issue signs an access token for subject with role.
func (s *TokenService) Issue(ctx context.Context, subject string, role types.Role) (*models.AccessToken, error) {
	ctx = wrap.WithAction(ctx, "issue_token")
	if subject == "" {
		return nil, wrap.Error(ctx, ErrEmptySubject)
	}
	if !role.IsValid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %q", types.ErrInvalidRole, role))
	}

	issuedAt := s.clk.Now().UTC()
	expiresAt := issuedAt.Add(s.AccessTTL)

	claims := customClaims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %w", ErrTokenGenerateFail, err))
	}

	return &models.AccessToken{
		Token:     token,
		Subject:   subject,
		Role:      role,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate verifies the signature and expiry of token and returns its claims.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.Claims, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	var claims customClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clk.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, wrap.Error(ctx, ErrExpToken)
		}
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	role := types.Role(claims.Role)
	if !role.IsValid() {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	return &models.Claims{
		TokenID:   claims.ID,
		Subject:   claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
