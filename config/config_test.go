package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoad_FromFile(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
database:
  driver: memory
jwt:
  secret_key: "`+testSecret+`"
  access_token_minutes: 15
password:
  algorithm: bcrypt
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 15, cfg.JWT.AccessTokenMinutes)
	assert.Equal(t, 7, cfg.JWT.RefreshTokenDays)
	assert.Equal(t, "task-manager-api", cfg.JWT.Issuer)
	assert.True(t, cfg.JWT.RevokeChainOnReuse)
	assert.Equal(t, "bcrypt", cfg.Password.Algorithm)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("JWT_REFRESH_TOKEN_DAYS", "30")
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.JWT.SecretKey)
	assert.Equal(t, 30, cfg.JWT.RefreshTokenDays)
	assert.Equal(t, "argon2id", cfg.Password.Algorithm)
}

func TestLoad_MissingSecretIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "jwt.secret_key")
}

func TestLoadConfig_SetsAppConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JWT_SECRET_KEY", testSecret)

	require.NoError(t, LoadConfig(dir))
	assert.Equal(t, testSecret, AppConfig.JWT.SecretKey)
}

func TestJWTConfig_Validate(t *testing.T) {
	valid := JWTConfig{
		SecretKey:          testSecret,
		Issuer:             "iss",
		Audience:           "aud",
		AccessTokenMinutes: 30,
		RefreshTokenDays:   7,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*JWTConfig)
		want   string
	}{
		{"short key", func(c *JWTConfig) { c.SecretKey = "short" }, "secret_key"},
		{"no issuer", func(c *JWTConfig) { c.Issuer = " " }, "issuer"},
		{"no audience", func(c *JWTConfig) { c.Audience = "" }, "audience"},
		{"zero access", func(c *JWTConfig) { c.AccessTokenMinutes = 0 }, "access_token_minutes"},
		{"negative refresh", func(c *JWTConfig) { c.RefreshTokenDays = -1 }, "refresh_token_days"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_ValidateRejectsUnknownChoices(t *testing.T) {
	cfg := Config{
		Server:   ServerConfig{Port: "8080", TrustedProxies: []string{"10.0.0.0/8", "not-an-ip"}},
		Database: DatabaseConfig{Driver: "sqlite"},
		Password: PasswordConfig{Algorithm: "md5"},
		JWT: JWTConfig{
			SecretKey:          testSecret,
			Issuer:             "iss",
			Audience:           "aud",
			AccessTokenMinutes: 1,
			RefreshTokenDays:   1,
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "password.algorithm")
	assert.Contains(t, err.Error(), `invalid proxy address "not-an-ip"`)
	assert.NotContains(t, err.Error(), "10.0.0.0/8")
}

func TestParseProxy(t *testing.T) {
	p, err := ParseProxy("10.1.2.3/8")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", p.String())

	p, err = ParseProxy(" 192.0.2.10 ")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10/32", p.String())

	p, err = ParseProxy("::1")
	require.NoError(t, err)
	assert.Equal(t, "::1/128", p.String())

	_, err = ParseProxy("10.0.0.0/99")
	assert.Error(t, err)
}
