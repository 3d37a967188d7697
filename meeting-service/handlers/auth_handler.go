package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/response"
)

// AuthHandler serves staff registration, login and password reset
type AuthHandler struct {
	users    store.UserStore
	tokens   *utils.TokenManager
	notifier Notifier
	now      func() time.Time
}

func NewAuthHandler(users store.UserStore, tokens *utils.TokenManager, notifier Notifier) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, notifier: notifier, now: time.Now}
}

type RegisterRequest struct {
	FirstName  string `json:"firstName" binding:"required,max=100" example:"Ada"`
	LastName   string `json:"lastName" binding:"required,max=100" example:"Lovelace"`
	Email      string `json:"email" binding:"required,email" example:"ada@example.com"`
	Password   string `json:"password" binding:"required,min=8" example:"securepassword"`
	Department string `json:"department" binding:"required,oneof=sales support marketing management" example:"sales"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"admin@meetdesk.local"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email" example:"ada@example.com"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User  models.UserSummary `json:"user"`
	Token string             `json:"token"`
}

// Register creates a staff account with the agent role
// @Summary Register a staff user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} response.Envelope{data=AuthResponse}
// @Failure 400 {object} response.Envelope "Validation error or email already registered"
// @Failure 429 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	email := utils.NormalizeEmail(req.Email)

	if _, err := h.users.GetUserByEmail(ctx, email); err == nil {
		c.Error(apperror.BadRequest("Email already registered"))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		c.Error(err)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	user := &models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       email,
		Password:    hashedPassword,
		Role:        models.RoleAgent,
		Department:  req.Department,
		Status:      models.UserStatusActive,
		Preferences: models.DefaultUserPreferences(),
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		var dupErr *store.DuplicateError
		if errors.As(err, &dupErr) {
			err = apperror.Wrap(err, http.StatusBadRequest, "Email already registered")
		}
		c.Error(err)
		return
	}

	h.notifier.SendUserWelcome(detached(c), user)

	token, err := h.tokens.GenerateUserToken(user.ID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "User registered successfully", AuthResponse{User: user.Summary(), Token: token})
}

// Login authenticates a staff user
// @Summary Staff login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope{data=AuthResponse}
// @Failure 401 {object} response.Envelope "Invalid email or password"
// @Failure 403 {object} response.Envelope "Account is inactive"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUserByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.Error(err)
		return
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.Password) {
		c.Error(apperror.Unauthorized("Invalid email or password"))
		return
	}
	if !user.IsActive() {
		c.Error(apperror.Forbidden("Account is inactive"))
		return
	}

	now := h.now()
	if err := h.users.TouchUserLogin(ctx, user.ID, now); err != nil {
		c.Error(err)
		return
	}
	user.LastLogin = &now

	token, err := h.tokens.GenerateUserToken(user.ID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Login successful", AuthResponse{User: user.Summary(), Token: token})
}

// RequestPasswordReset emails a one-hour reset link
// @Summary Request a staff password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Account email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope "User not found"
// @Router /auth/password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetUserByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		c.Error(notFoundAs(err, "User not found"))
		return
	}

	token, expires, err := utils.GenerateResetToken(h.now())
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.users.SetUserResetToken(ctx, user.ID, token, expires); err != nil {
		c.Error(notFoundAs(err, "User not found"))
		return
	}

	h.notifier.SendUserPasswordReset(detached(c), user, token)
	response.Success(c, http.StatusOK, "Password reset email sent successfully", nil)
}

// ResetPassword consumes a reset token and sets a new password
// @Summary Reset a staff password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "Invalid or expired reset token"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	reset, err := h.users.ResetUserPassword(c.Request.Context(), req.Token, hashedPassword, h.now())
	if err != nil {
		c.Error(err)
		return
	}
	if !reset {
		c.Error(apperror.BadRequest("Invalid or expired reset token"))
		return
	}
	response.Success(c, http.StatusOK, "Password has been reset successfully", nil)
}

// Me returns the authenticated staff user
// @Summary Current staff user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.User}
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, http.StatusOK, "User retrieved successfully", identityFrom(c).User)
}
