package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"task-manager-api/config"
	"task-manager-api/logger"
	"task-manager-api/model"

	"github.com/golang-jwt/jwt/v5"
)

const refreshTokenBytes = 64

// AccessClaims is the identity embedded in an access token.
type AccessClaims struct {
	UserID   int
	Username string
	Role     model.Role
}

// TokenService issues and validates HS256 access tokens and mints opaque
// refresh tokens.
type TokenService struct {
	key        []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService refuses to build a service with a weak or incomplete configuration.
func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return &TokenService{
		key:        []byte(cfg.SecretKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  time.Duration(cfg.AccessTokenMinutes) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshTokenDays) * 24 * time.Hour,
		now:        time.Now,
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssueAccess signs an access token for the given identity and returns it with its expiry.
func (s *TokenService) IssueAccess(c AccessClaims) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)

	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token id: %w", err)
	}

	claims := &model.AppClaims{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(c.UserID),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        base64.RawURLEncoding.EncodeToString(jti),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", c.UserID).Error("Failed to sign JWT")
		return "", time.Time{}, fmt.Errorf("failed to sign token string: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefresh returns a fresh opaque refresh token and its expiry.
func (s *TokenService) IssueRefresh() (string, time.Time, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), s.now().Add(s.refreshTTL), nil
}

// ValidateAccess verifies signature, algorithm, issuer and audience. With
// allowExpired the lifetime checks are skipped; this is only for the refresh flow.
func (s *TokenService) ValidateAccess(tokenString string, allowExpired bool) (*model.AppClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, opts...)
	if err != nil {
		if !allowExpired && errors.Is(err, jwt.ErrTokenExpired) && onlyExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if allowExpired {
		// WithoutClaimsValidation disables issuer and audience checks too.
		if claims.Issuer != s.issuer || !audienceContains(claims.Audience, s.audience) {
			return nil, ErrTokenInvalid
		}
	}

	if claims.UserID <= 0 || claims.Subject != strconv.Itoa(claims.UserID) || !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// onlyExpired reports whether lifetime was the sole reason validation failed.
func onlyExpired(err error) bool {
	for _, other := range []error{jwt.ErrTokenSignatureInvalid, jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenInvalidAudience, jwt.ErrTokenMalformed, jwt.ErrTokenUnverifiable} {
		if errors.Is(err, other) {
			return false
		}
	}
	return true
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
