package handler

import (
	"context"
	"strings"

	"github.com/dronehub/backend/internal/application/identity"
	"github.com/dronehub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountService is the identity surface behind the auth and account endpoints
type AccountService interface {
	Register(ctx context.Context, req identity.RegisterRequest) (*identity.AuthResponse, error)
	Login(ctx context.Context, req identity.LoginRequest) (*identity.AuthResponse, error)
	Refresh(ctx context.Context, req identity.RefreshRequest) (*identity.AuthResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string)
	Me(ctx context.Context, userID uuid.UUID) (*identity.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req identity.ProfileRequest) (*identity.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req identity.ChangePasswordRequest) error
	ReplaceAddresses(ctx context.Context, userID uuid.UUID, req identity.AddressesRequest) (*identity.UserResponse, error)
}

// AuthHandler handles authentication and account HTTP requests
type AuthHandler struct {
	BaseHandler
	accounts AccountService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// LogoutRequest optionally carries the refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register godoc
// @ID           register
// @Summary      Create a customer account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.RegisterRequest true "Account"
// @Success      201 {object} APIResponse[identity.AuthResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req identity.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Login godoc
// @ID           login
// @Summary      User login
// @Description  Exchanges email and password for an access and refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.LoginRequest true "Login credentials"
// @Success      200 {object} APIResponse[identity.AuthResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req identity.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Refresh godoc
// @ID           refreshToken
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body identity.RefreshRequest true "Refresh token"
// @Success      200 {object} APIResponse[identity.AuthResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identity.RefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.accounts.Refresh(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Logout godoc
// @ID           logout
// @Summary      Revoke the current tokens
// @Tags         auth
// @Accept       json
// @Param        request body LogoutRequest false "Refresh token to revoke as well"
// @Success      204
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	// the body is optional
	_ = c.ShouldBindJSON(&req)
	access := strings.TrimSpace(strings.TrimPrefix(c.GetHeader(middleware.AuthHeaderKey), middleware.BearerPrefix))
	h.accounts.Logout(c.Request.Context(), access, req.RefreshToken)
	h.NoContent(c)
}

// Me godoc
// @ID           getMe
// @Summary      Current account
// @Tags         account
// @Produce      json
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	user, err := h.accounts.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateProfile godoc
// @ID           updateMe
// @Summary      Update name and phone
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body identity.ProfileRequest true "Profile"
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identity.ProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.accounts.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword godoc
// @ID           changePassword
// @Summary      Change password
// @Tags         account
// @Accept       json
// @Param        request body identity.ChangePasswordRequest true "Passwords"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identity.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), userID, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ReplaceAddresses godoc
// @ID           replaceAddresses
// @Summary      Replace the address book
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body identity.AddressesRequest true "Addresses"
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me/addresses [put]
func (h *AuthHandler) ReplaceAddresses(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identity.AddressesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.accounts.ReplaceAddresses(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

func (h *AuthHandler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}
