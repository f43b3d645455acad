package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
)

func TestTokenService_IssueValidate(t *testing.T) {
	clk := clock.NewFake(time.Unix(1700000000, 0))
	s := NewTokenService("secret", time.Hour, clk)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "driver-42", types.RoleDriver)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := s.Validate(ctx, tok.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "driver-42" || claims.Role != types.RoleDriver {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(tok.ExpiresAt.Truncate(time.Second)) {
		t.Fatalf("expiry mismatch: %v vs %v", claims.ExpiresAt, tok.ExpiresAt)
	}
}

func TestTokenService_Expired(t *testing.T) {
	clk := clock.NewFake(time.Unix(1700000000, 0))
	s := NewTokenService("secret", time.Minute, clk)
	ctx := context.Background()

	tok, err := s.Issue(ctx, "driver-42", types.RoleDriver)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clk.Advance(2 * time.Minute)
	_, err = s.Validate(ctx, tok.Token)
	if !errors.Is(err, ErrExpToken) {
		t.Fatalf("expected ErrExpToken, got %v", err)
	}
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("expired token must map to unauthorized")
	}
	if !errors.Is(err, types.ErrSessionExpired) {
		t.Fatalf("expired token must map to session expired")
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	clk := clock.NewFake(time.Unix(1700000000, 0))
	ctx := context.Background()

	tok, err := NewTokenService("secret-a", time.Hour, clk).Issue(ctx, "viewer", types.RoleCustomer)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewTokenService("secret-b", time.Hour, clk).Validate(ctx, tok.Token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_IssueRejectsBadInput(t *testing.T) {
	s := NewTokenService("secret", time.Hour, clock.Real())
	ctx := context.Background()

	if _, err := s.Issue(ctx, "", types.RoleDriver); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
	if _, err := s.Issue(ctx, "x", types.Role("root")); !errors.Is(err, types.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := s.Validate(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
