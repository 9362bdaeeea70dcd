package handler

import (
	"net/http"

	"task-manager-api/common"
	"task-manager-api/logger"
	"task-manager-api/model"
	"task-manager-api/service"

	"github.com/sirupsen/logrus"
)

// AuthHandler serves the public and self-service authentication endpoints.
type AuthHandler struct {
	service *service.AuthService
	proxies TrustedProxies
}

// NewAuthHandler builds the handler. proxies may be nil, in which case the
// peer address is always used as the client address.
func NewAuthHandler(s *service.AuthService, proxies TrustedProxies) *AuthHandler {
	return &AuthHandler{service: s, proxies: proxies}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a regular user account and returns an access/refresh token pair.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user body model.RegisterRequest true "Registration details"
// @Success      201  {object}  service.AuthResult
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      409  {object}  common.AppError "Username or email already exists"
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	logger.Log.WithField("username", req.Username).Info("Register request received")

	result, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		ClientIP: h.proxies.clientIP(r),
	})
	if err != nil {
		return mapServiceError(err, "Could not register user")
	}

	common.WriteJSON(w, http.StatusCreated, result)
	return nil
}

// Login godoc
// @Summary      Log in
// @Description  Authenticates with email and password and returns an access/refresh token pair.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "Login credentials"
// @Success      200  {object}  service.AuthResult
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      401  {object}  common.AppError "Invalid email or password"
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, h.proxies.clientIP(r))
	if err != nil {
		return mapServiceError(err, "Could not log in")
	}

	common.WriteJSON(w, http.StatusOK, result)
	return nil
}

// Refresh godoc
// @Summary      Refresh tokens
// @Description  Exchanges a refresh token and its (possibly expired) access token for a new pair. The presented refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        tokens body model.RefreshRequest true "Current token pair"
// @Success      200  {object}  service.AuthResult
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      401  {object}  common.AppError "Invalid, revoked or expired token"
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	result, err := h.service.Refresh(r.Context(), req.AccessToken, req.RefreshToken, h.proxies.clientIP(r))
	if err != nil {
		return mapServiceError(err, "Could not refresh token")
	}

	common.WriteJSON(w, http.StatusOK, result)
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes one of the caller's refresh tokens.
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        token body model.LogoutRequest true "Refresh token to revoke"
// @Success      204
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Failure      404  {object}  common.AppError "Refresh token not found"
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, _, appErr := userFromContext(r)
	if appErr != nil {
		return appErr
	}
	var req model.LogoutRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	if err := h.service.Logout(r.Context(), userID, req.RefreshToken, h.proxies.clientIP(r)); err != nil {
		return mapServiceError(err, "Could not log out")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// LogoutAll godoc
// @Summary      Log out everywhere
// @Description  Revokes every active refresh token of the caller.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int64
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /api/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, _, appErr := userFromContext(r)
	if appErr != nil {
		return appErr
	}

	n, err := h.service.LogoutAll(r.Context(), userID, h.proxies.clientIP(r))
	if err != nil {
		return mapServiceError(err, "Could not log out")
	}

	common.WriteJSON(w, http.StatusOK, map[string]int64{"revoked": n})
	return nil
}

// CreateAdmin godoc
// @Summary      Create an administrator
// @Description  Creates an admin account. Admin only.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user body model.CreateAdminRequest true "Administrator details"
// @Success      201  {object}  service.AuthResult
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      403  {object}  common.AppError "Admin privileges required"
// @Failure      409  {object}  common.AppError "Username or email already exists"
// @Router       /api/auth/admin/create [post]
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) *common.AppError {
	actorID, _, appErr := userFromContext(r)
	if appErr != nil {
		return appErr
	}
	var req model.CreateAdminRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{
		"actor_id": actorID,
		"username": req.Username,
	}).Info("Create admin request received")

	result, err := h.service.CreateAdmin(r.Context(), req.Username, req.Email, req.Password, h.proxies.clientIP(r))
	if err != nil {
		return mapServiceError(err, "Could not create administrator")
	}

	common.WriteJSON(w, http.StatusCreated, result)
	return nil
}

// ListUsers godoc
// @Summary      List users
// @Description  Lists every account. Admin only.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.UserView
// @Failure      403  {object}  common.AppError "Admin privileges required"
// @Router       /api/auth/admin/users [get]
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) *common.AppError {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		return mapServiceError(err, "Could not list users")
	}
	common.WriteJSON(w, http.StatusOK, users)
	return nil
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Deletes an account with its refresh tokens and tasks. The last administrator cannot be deleted. Admin only.
// @Tags         admin
// @Security     BearerAuth
// @Param        userId path int true "User ID"
// @Success      204
// @Failure      400  {object}  common.AppError "Invalid user ID"
// @Failure      403  {object}  common.AppError "Admin privileges required or last administrator"
// @Failure      404  {object}  common.AppError "User not found"
// @Router       /api/auth/admin/users/{userId} [delete]
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "userId")
	if appErr != nil {
		return appErr
	}
	actorID, _, appErr := userFromContext(r)
	if appErr != nil {
		return appErr
	}

	logger.Log.WithFields(logrus.Fields{
		"actor_id": actorID,
		"user_id":  id,
	}).Info("Delete user request received")

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		return mapServiceError(err, "Could not delete user")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
