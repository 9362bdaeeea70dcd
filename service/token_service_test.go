package service

import (
	"strconv"
	"testing"
	"time"

	"task-manager-api/config"
	"task-manager-api/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:          testSecret,
		Issuer:             "task-manager-api",
		Audience:           "task-manager-clients",
		AccessTokenMinutes: 30,
		RefreshTokenDays:   7,
		RevokeChainOnReuse: true,
	}
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)
	return ts
}

func TestNewTokenService_RejectsWeakConfig(t *testing.T) {
	cfg := testJWTConfig()
	cfg.SecretKey = "short"
	_, err := NewTokenService(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = testJWTConfig()
	cfg.Audience = ""
	_, err = NewTokenService(cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	ts := newTestTokenService(t)

	token, exp, err := ts.IssueAccess(AccessClaims{UserID: 42, Username: "alice", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := ts.ValidateAccess(token, false)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(42), claims.Subject)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)
	issued := time.Now().Add(-2 * time.Hour)
	ts.now = func() time.Time { return issued }

	token, _, err := ts.IssueAccess(AccessClaims{UserID: 7, Username: "bob", Role: model.RoleUser})
	require.NoError(t, err)

	ts.now = time.Now
	_, err = ts.ValidateAccess(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	claims, err := ts.ValidateAccess(token, true)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "bob", claims.Username)
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	ts := newTestTokenService(t)
	claims := &model.AppClaims{
		UserID: 1,
		Role:   model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "task-manager-api",
			Audience:  jwt.ClaimStrings{"task-manager-clients"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	for name, tok := range map[string]string{"alg none": none, "HS512": hs512, "other key": otherKey, "malformed": "a.b.c", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.ValidateAccess(tok, false)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			_, err = ts.ValidateAccess(tok, true)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenService_ChecksIssuerAndAudience(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Audience = "someone-else"
	foreign, err := NewTokenService(cfg)
	require.NoError(t, err)

	token, _, err := foreign.IssueAccess(AccessClaims{UserID: 3, Username: "eve", Role: model.RoleUser})
	require.NoError(t, err)

	ts := newTestTokenService(t)
	_, err = ts.ValidateAccess(token, false)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = ts.ValidateAccess(token, true)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_IssueRefresh(t *testing.T) {
	ts := newTestTokenService(t)
	a, exp, err := ts.IssueRefresh()
	require.NoError(t, err)
	b, _, err := ts.IssueRefresh()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 88) // base64 of 64 bytes
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)
}
