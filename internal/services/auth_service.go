package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"groupboard/internal/auth"
)

// ErrRevocationUnavailable is returned by Logout when no blacklist is configured.
var ErrRevocationUnavailable = errors.New("token revocation is not configured")

// AuthService handles token lifecycle actions the API exposes. Tokens are
// issued by the identity provider, so only revocation lives here.
type AuthService interface {
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	blacklist auth.TokenBlacklist
	timeout   time.Duration
}

// NewAuthService creates an AuthService. blacklist may be nil when Redis is disabled.
func NewAuthService(blacklist auth.TokenBlacklist, timeout time.Duration) AuthService {
	return &authService{blacklist: blacklist, timeout: timeout}
}

// Logout revokes the token by its jti until it would have expired.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if claims.ID == "" {
		return invalid("token has no jti and cannot be revoked")
	}
	if s.blacklist == nil {
		return ErrRevocationUnavailable
	}
	exp := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.blacklist.Add(ctx, claims.ID, exp); err != nil {
		return storeFailure(ctx, "revoke token", claims.ID, err)
	}
	log.Info().Str("jti", claims.ID).Str("oid", claims.ExternalID()).Msg("token revoked")
	return nil
}
