package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"task-manager-api/common"
	"task-manager-api/model"
	"task-manager-api/service"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UserRoleKey contextKey = "userRole"
	UsernameKey contextKey = "username"
)

// AuthMiddleware requires a valid, unexpired Bearer access token and stores
// the caller's identity in the request context.
func AuthMiddleware(tokens *service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil).Send(w)
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenString) == "" {
				common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil).Send(w)
				return
			}

			claims, err := tokens.ValidateAccess(strings.TrimSpace(tokenString), false)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, service.ErrTokenExpired) {
					msg = "Token has expired"
				}
				common.NewAppError(http.StatusUnauthorized, msg, err).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleKey).(model.Role)
		if !ok || role != model.RoleAdmin {
			common.NewAppError(http.StatusForbidden, "Access denied. Admin privileges required.", nil).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(r *http.Request) (int, string, *common.AppError) {
	userID, ok := r.Context().Value(UserIDKey).(int)
	if !ok {
		return 0, "", common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}
	username, _ := r.Context().Value(UsernameKey).(string)
	return userID, username, nil
}
