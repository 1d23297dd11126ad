package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/feedback-api/internal/models"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(nil, nil, AuthConfig{PasswordHash: string(hash), SessionSecret: "test-secret", SessionExpiry: time.Hour})
}

func TestAuthServiceLoginIssuesValidSession(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthServiceLoginRejectsWrongPassword(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Password: "guess"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	svc := newAuthService(t)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, models.AdminClaims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: sessionIssuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-jwt")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsExpiredSession(t *testing.T) {
	svc := newAuthService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), models.LoginRequest{Password: "s3cret"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogoutRevokesSession(t *testing.T) {
	svc := newAuthService(t)

	first, err := svc.Login(context.Background(), models.LoginRequest{Password: "s3cret"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), models.LoginRequest{Password: "s3cret"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), first.AccessToken))

	_, err = svc.ValidateToken(first.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken(second.AccessToken)
	assert.NoError(t, err)

	assert.NoError(t, svc.Logout(context.Background(), first.AccessToken))
	assert.NoError(t, svc.Logout(context.Background(), "not-a-jwt"))
	assert.NoError(t, svc.Logout(context.Background(), ""))
}

func TestAuthServiceLogoutPrunesExpiredRevocations(t *testing.T) {
	svc := newAuthService(t)

	first, err := svc.Login(context.Background(), models.LoginRequest{Password: "s3cret"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), models.LoginRequest{Password: "s3cret"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), first.AccessToken))
	require.Len(t, svc.revoked, 1)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	require.NoError(t, svc.Logout(context.Background(), second.AccessToken))
	claims, err := jwt.ParseWithClaims(second.AccessToken, &models.AdminClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Len(t, svc.revoked, 1)
	assert.Contains(t, svc.revoked, claims.Claims.(*models.AdminClaims).ID)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("admin123")))
}
