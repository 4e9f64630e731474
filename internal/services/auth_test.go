package services

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/spackmon-backend/internal/data/repos/testutil"
	"github.com/yungbote/spackmon-backend/internal/platform/apierr"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

func basic(username, token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+token))
}

func TestIssueAndAuthenticateToken(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	username := testutil.Unique("agent")

	u, token, err := env.auth.CreateUser(env.ctx, username, "agent@example.org")
	require.NoError(t, err)
	assert.Len(t, token, 40)
	assert.NotEqual(t, token, u.TokenHash)

	_, err = env.auth.VerifyBasic(env.ctx, username, "wrong")
	assert.Equal(t, http.StatusForbidden, apierr.As(err).Status)

	verified, err := env.auth.VerifyBasic(env.ctx, username, token)
	require.NoError(t, err)

	issued, err := env.auth.IssueToken(env.ctx, verified, "")
	require.NoError(t, err)
	assert.Equal(t, 60, issued.ExpiresIn)

	claims := &TokenClaims{}
	_, err = jwt.ParseWithClaims(issued.Token, claims, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, username, claims.Subject)
	assert.Equal(t, "http://monitor.test/auth/token/", claims.Issuer)
	require.Len(t, claims.Access, 1)
	assert.Equal(t, []string{DefaultTokenScope}, claims.Access[0].Actions)

	id, err := env.auth.Authenticate(env.ctx, "Bearer "+issued.Token)
	require.NoError(t, err)
	require.NotNil(t, id.UserID)
	assert.Equal(t, u.ID, *id.UserID)
	assert.Equal(t, username, id.Username)

	require.NoError(t, env.tokens.Revoke(env.ctx, uuid.MustParse(claims.ID)))
	_, err = env.auth.Authenticate(env.ctx, "Bearer "+issued.Token)
	ae := apierr.As(err)
	assert.Equal(t, http.StatusForbidden, ae.Status)
	assert.Equal(t, "token_revoked", ae.Code)
}

func TestAuthenticateRejections(t *testing.T) {
	env := newTestEnv(t, CascadeDirect)
	username := testutil.Unique("agent")
	_, token, err := env.auth.CreateUser(env.ctx, username, "")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":     "",
		"garbage":     "Bearer not-a-jwt",
		"bad basic":   basic(username, "wrong"),
		"wrong realm": "Digest abc",
	} {
		_, err := env.auth.Authenticate(env.ctx, header)
		assert.Equal(t, http.StatusUnauthorized, apierr.As(err).Status, name)
	}

	_, err = env.auth.Authenticate(env.ctx, basic(username, token))
	assert.Equal(t, http.StatusForbidden, apierr.As(err).Status, "valid credentials must be exchanged for a token")

	claims := TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   username,
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = env.auth.Authenticate(env.ctx, "Bearer "+forged)
	assert.Equal(t, http.StatusForbidden, apierr.As(err).Status, "tokens that were never issued are refused")
}

func TestAuthenticationDisabled(t *testing.T) {
	svc := NewAuthService(nil, logger.NewNop(), AuthConfig{Disabled: true}, nil, nil)
	id, err := svc.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, id.AuthDisabled)
	assert.Nil(t, id.UserID)
}
