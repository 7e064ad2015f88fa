package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"groupboard/internal/auth"
	"groupboard/internal/services"
)

type memoryBlacklist map[string]time.Time

func (m memoryBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	m[jti] = exp
	return nil
}

func (m memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m[jti]
	return ok, nil
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1", ExpiresAt: jwt.NewNumericDate(exp)}}

	list := memoryBlacklist{}
	mustNoErr(t, services.NewAuthService(list, testTimeout).Logout(ctx, claims))
	if got, ok := list["jti-1"]; !ok || !got.Equal(exp) {
		t.Fatalf("blacklist = %v, want jti-1 until %v", list, exp)
	}

	wantErr(t, services.NewAuthService(list, testTimeout).Logout(ctx, &auth.Claims{}), services.ErrValidation)
	wantErr(t, services.NewAuthService(nil, testTimeout).Logout(ctx, claims), services.ErrRevocationUnavailable)
	wantErr(t, services.NewAuthService(list, testTimeout).Logout(ctx, nil), services.ErrUnauthenticated)
}
