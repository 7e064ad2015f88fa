package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"groupboard/internal/config"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims are the bearer token claims. UserID is attached by the identity
// provider once the user has registered; ObjectID is the external identity.
type Claims struct {
	UserID   ClaimID `json:"userId,omitempty"`
	ObjectID string  `json:"oid,omitempty"`
	Name     string  `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ExternalID returns the external identity key: oid, falling back to sub.
func (c *Claims) ExternalID() string {
	if c.ObjectID != "" {
		return c.ObjectID
	}
	return c.Subject
}

// GenerateToken issues a signed token. userID 0 omits the userId claim, as
// for a user who has not registered yet. Used by the admin CLI and tests.
func GenerateToken(userID uint, externalID, name string, authCfg config.AuthConfig) (string, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		ObjectID: externalID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   externalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(authCfg.JWTExpiry)),
			ID:        jwtID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    authCfg.JWTIssuer,
		},
	}
	if userID > 0 {
		claims.UserID = ClaimID(strconv.FormatUint(uint64(userID), 10))
	}
	if authCfg.JWTAudience != "" {
		claims.Audience = jwt.ClaimStrings{authCfg.JWTAudience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(authCfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies signature, expiry and the configured issuer and
// audience, then checks the blacklist when one is given and the token has a jti.
func ValidateToken(ctx context.Context, tokenString string, authCfg config.AuthConfig, blacklist TokenBlacklist) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if authCfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(authCfg.JWTIssuer))
	}
	if authCfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(authCfg.JWTAudience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(authCfg.JWTSecretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if blacklist != nil && claims.ID != "" {
		revoked, err := blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			// Fail closed.
			return nil, fmt.Errorf("check token blacklist: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}
