package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "registry"})
	stdNo := int64(901000001)

	token, expiresAt, err := svc.IssueToken(TokenIdentity{UserID: "user-1", Role: models.RoleStudent, StdNo: &stdNo})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	require.NotNil(t, claims.StdNo)
	assert.Equal(t, stdNo, *claims.StdNo)
}

func TestAuthServiceRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthService(AuthConfig{AccessTokenSecret: "one"})
	verifier := NewAuthService(AuthConfig{AccessTokenSecret: "two"})

	token, _, err := issuer.IssueToken(TokenIdentity{UserID: "user-1", Role: models.RoleFinance})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.Kind(err))
}

func TestAuthServiceRejectsStudentWithoutNumber(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})
	token, _, err := svc.IssueToken(TokenIdentity{UserID: "user-1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestAuthServiceRejectsUnexpectedAlgorithm(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.JWTClaims{
		UserID:           "user-1",
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestAuthServiceRequiresExpiry(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{UserID: "user-1", Role: models.RoleRegistry})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.Kind(err))
}
