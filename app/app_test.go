package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"task-manager-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:          "0123456789abcdef0123456789abcdef",
			Issuer:             "task-manager-api",
			Audience:           "task-manager-clients",
			AccessTokenMinutes: 15,
			RefreshTokenDays:   1,
		},
		Password: config.PasswordConfig{Algorithm: "sha256"},
	}
}

func TestNew(t *testing.T) {
	a, err := New(validConfig(), MemoryStores(), nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Auth)
	assert.NotNil(t, a.Tasks)
	assert.Equal(t, "15m0s", a.Tokens.AccessTTL().String())

	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNew_RejectsBadConfiguration(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.SecretKey = "too-short"
	_, err := New(cfg, MemoryStores(), nil)
	assert.Error(t, err)

	cfg = validConfig()
	cfg.Password.Algorithm = "md5"
	_, err = New(cfg, MemoryStores(), nil)
	assert.Error(t, err)
	cfg = validConfig()
	cfg.Server.TrustedProxies = []string{"lb.internal"}
	_, err = New(cfg, MemoryStores(), nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
