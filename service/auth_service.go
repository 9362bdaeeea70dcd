package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-manager-api/logger"
	"task-manager-api/model"
	"task-manager-api/repository"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const maxUsernameLength = 50

var validate = validator.New()

// RegisterInput carries a registration request. A zero Role means RoleUser.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     model.Role
	ClientIP string
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// AuthResult is returned by every operation that authenticates a user.
type AuthResult struct {
	User model.UserView `json:"user"`
	TokenPair
}

// AuthService owns registration, login and the refresh token lifecycle.
type AuthService struct {
	users              repository.IUserRepository
	refresh            repository.ITokenRepository
	tokens             *TokenService
	hasher             PasswordHasher
	cache              ICacheClient
	revokeChainOnReuse bool
	dummyHash          string
}

// NewAuthService wires the service. refresh and cache may be nil: without a
// refresh store only access tokens are issued, without a cache ListUsers
// always reads the store.
func NewAuthService(users repository.IUserRepository, refresh repository.ITokenRepository, tokens *TokenService,
	hasher PasswordHasher, cache ICacheClient, revokeChainOnReuse bool) *AuthService {
	s := &AuthService{
		users:              users,
		refresh:            refresh,
		tokens:             tokens,
		hasher:             hasher,
		cache:              cache,
		revokeChainOnReuse: revokeChainOnReuse,
	}
	// Login with an unknown email verifies against this hash so both failure paths do the same work.
	if h, err := hasher.Hash("task-manager-dummy-password"); err == nil {
		s.dummyHash = h
	}
	return s
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, user, in.ClientIP)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := model.NormalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}

	switch {
	case username == "":
		return nil, validationError("username", "is required")
	case len(username) > maxUsernameLength:
		return nil, validationError("username", fmt.Sprintf("must be at most %d characters", maxUsernameLength))
	case email == "":
		return nil, validationError("email", "is required")
	case validate.Var(email, "email") != nil:
		return nil, validationError("email", "is not a valid address")
	case strings.TrimSpace(in.Password) == "":
		return nil, validationError("password", "is required")
	case !role.Valid():
		return nil, validationError("role", "is unknown")
	}

	log := logger.Log.WithFields(logrus.Fields{
		"username": username,
		"role":     role,
	})

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		log.Info("Registration rejected: username or email taken")
		return nil, ErrConflict
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.Info("Registration lost a uniqueness race")
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.invalidateUsers(ctx)
	log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// CreateAdmin registers an administrator account.
func (s *AuthService) CreateAdmin(ctx context.Context, username, email, password, clientIP string) (*AuthResult, error) {
	return s.Register(ctx, RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     model.RoleAdmin,
		ClientIP: clientIP,
	})
}

// Login returns ErrInvalidCredentials for an unknown email and for a wrong password alike.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*AuthResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			logger.Log.Info("Login failed: invalid credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		logger.Log.WithField("user_id", user.ID).Info("Login failed: invalid credentials")
		return nil, ErrInvalidCredentials
	}

	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	return s.signIn(ctx, user, clientIP)
}

func (s *AuthService) signIn(ctx context.Context, user *model.User, clientIP string) (*AuthResult, error) {
	access, expiresAt, err := s.tokens.IssueAccess(AccessClaims{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, err
	}
	result := &AuthResult{
		User: user.View(),
		TokenPair: TokenPair{
			AccessToken: access,
			ExpiresAt:   expiresAt,
			TokenType:   "Bearer",
		},
	}
	if s.refresh == nil {
		return result, nil
	}

	raw, refreshExp, err := s.tokens.IssueRefresh()
	if err != nil {
		return nil, err
	}
	rt := &model.RefreshToken{UserID: user.ID, Token: raw, ExpiresAt: refreshExp, CreatedByIP: clientIP}
	if err := s.refresh.Save(ctx, rt); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	result.RefreshToken = raw
	return result, nil
}

// Refresh exchanges a refresh token and the access token it accompanies for
// a new pair. The access token may be expired but must otherwise be valid and
// belong to the refresh token's owner.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken, clientIP string) (*AuthResult, error) {
	if s.refresh == nil {
		return nil, ErrTokenInvalid
	}
	claims, err := s.tokens.ValidateAccess(accessToken, true)
	if err != nil {
		return nil, err
	}

	stored, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotActive
		}
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id":   stored.UserID,
		"client_ip": clientIP,
	})

	if stored.UserID != claims.UserID {
		log.Warn("Refresh token presented with another user's access token")
		return nil, ErrTokenInvalid
	}

	if stored.IsRevoked() {
		if stored.WasRotated() && s.revokeChainOnReuse {
			n, err := s.refresh.RevokeChain(ctx, refreshToken, clientIP)
			if err != nil {
				return nil, fmt.Errorf("revoke token chain: %w", err)
			}
			log.WithField("revoked", n).Warn("Rotated refresh token replayed; descendant tokens revoked")
		} else {
			log.Info("Revoked refresh token presented")
		}
		return nil, ErrTokenNotActive
	}
	if stored.IsExpired(s.tokens.now()) {
		return nil, ErrTokenNotActive
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	access, expiresAt, err := s.tokens.IssueAccess(AccessClaims{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, err
	}
	raw, refreshExp, err := s.tokens.IssueRefresh()
	if err != nil {
		return nil, err
	}
	next := &model.RefreshToken{UserID: user.ID, Token: raw, ExpiresAt: refreshExp, CreatedByIP: clientIP}
	if err := s.refresh.Rotate(ctx, refreshToken, next, clientIP); err != nil {
		if errors.Is(err, repository.ErrTokenNotActive) {
			log.Info("Refresh token rotation lost to a concurrent request")
			return nil, ErrTokenNotActive
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	log.Info("Refresh token rotated")
	return &AuthResult{
		User: user.View(),
		TokenPair: TokenPair{
			AccessToken:  access,
			RefreshToken: raw,
			ExpiresAt:    expiresAt,
			TokenType:    "Bearer",
		},
	}, nil
}

// Logout revokes one refresh token owned by userID.
func (s *AuthService) Logout(ctx context.Context, userID int, refreshToken, clientIP string) error {
	if s.refresh == nil {
		return nil
	}
	stored, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load refresh token: %w", err)
	}
	if stored.UserID != userID {
		return ErrNotFound
	}
	if err := s.refresh.Revoke(ctx, refreshToken, clientIP); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	logger.Log.WithField("user_id", userID).Info("Refresh token revoked")
	return nil
}

// LogoutAll revokes every active refresh token of userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID int, clientIP string) (int64, error) {
	if s.refresh == nil {
		return 0, nil
	}
	n, err := s.refresh.RevokeAllForUser(ctx, userID, clientIP)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{"user_id": userID, "revoked": n}).Info("All refresh tokens revoked")
	return n, nil
}

// ListUsers returns every account without password hashes, read through the cache when one is configured.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.UserView, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, usersCacheKey).Result()
		switch {
		case err == nil:
			var views []model.UserView
			if jsonErr := json.Unmarshal([]byte(cached), &views); jsonErr == nil {
				logger.Log.Debug("Cache hit for user list")
				return views, nil
			}
		case errors.Is(err, redis.Nil):
			logger.Log.Debug("Cache miss for user list")
		default:
			logger.Log.WithError(err).Warn("Failed to read user list from cache")
		}
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	views := make([]model.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}

	if s.cache != nil {
		if data, err := json.Marshal(views); err == nil {
			if err := s.cache.Set(ctx, usersCacheKey, data, usersCacheTTL).Err(); err != nil {
				logger.Log.WithError(err).Warn("Failed to write user list to cache")
			}
		}
	}
	return views, nil
}

// DeleteUser removes an account. The store refuses to remove the last administrator.
func (s *AuthService) DeleteUser(ctx context.Context, id int) error {
	if err := s.users.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, repository.ErrLastAdmin):
			return ErrLastAdmin
		default:
			return fmt.Errorf("delete user: %w", err)
		}
	}
	s.invalidateUsers(ctx)
	logger.Log.WithField("user_id", id).Info("User deleted")
	return nil
}

// SeedAdmin creates the bootstrap administrator when no administrator exists.
// It reports whether an account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if strings.TrimSpace(password) == "" {
		return false, nil
	}
	n, err := s.users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count administrators: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	in := RegisterInput{Username: username, Email: email, Password: password, Role: model.RoleAdmin}
	if _, err := s.createUser(ctx, in); err != nil {
		if errors.Is(err, ErrConflict) {
			logger.Log.WithField("username", username).Warn("Seed administrator skipped: account already exists")
			return false, nil
		}
		return false, err
	}
	logger.Log.WithField("username", username).Info("Seeded default administrator")
	return true, nil
}

func (s *AuthService) invalidateUsers(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, usersCacheKey).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to invalidate user list cache")
	}
}
