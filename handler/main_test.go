// handler/main_test.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"task-manager-api/config"
	"task-manager-api/logger"
	"task-manager-api/model"
	"task-manager-api/repository/memory"
	"task-manager-api/service"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type testEnv struct {
	store  *memory.Store
	tokens *service.TokenService
	auth   *service.AuthService
	tasks  *service.TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := service.NewTokenService(config.JWTConfig{
		SecretKey:          testSecret,
		Issuer:             "task-manager-api",
		Audience:           "task-manager-clients",
		AccessTokenMinutes: 30,
		RefreshTokenDays:   7,
	})
	require.NoError(t, err)
	store := memory.NewStore()
	return &testEnv{
		store:  store,
		tokens: tokens,
		auth:   service.NewAuthService(store.Users(), store.Tokens(), tokens, service.SHA256Hasher{}, nil, true),
		tasks:  service.NewTaskService(store.Tasks(), store.Users()),
	}
}

// register creates an account directly through the service.
func (e *testEnv) register(t *testing.T, username string, role model.Role) *service.AuthResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "pw-" + username,
		Role:     role,
	})
	require.NoError(t, err)
	return res
}

func jsonRequest(t *testing.T, method, target string, body interface{}, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
