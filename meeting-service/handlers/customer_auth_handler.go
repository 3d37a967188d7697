package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/response"
)

// CustomerAuthHandler serves customer self-service signup with OTP verification
type CustomerAuthHandler struct {
	customers store.CustomerStore
	tokens    *utils.TokenManager
	notifier  Notifier
	now       func() time.Time
}

func NewCustomerAuthHandler(customers store.CustomerStore, tokens *utils.TokenManager, notifier Notifier) *CustomerAuthHandler {
	return &CustomerAuthHandler{customers: customers, tokens: tokens, notifier: notifier, now: time.Now}
}

type CustomerSignupRequest struct {
	Name     string `json:"name" binding:"required,max=200" example:"Grace Hopper"`
	Email    string `json:"email" binding:"required,email" example:"grace@example.com"`
	Phone    string `json:"phone" binding:"required,max=30" example:"+911234567890"`
	Company  string `json:"company" binding:"max=200" example:"Navy"`
	Password string `json:"password" binding:"required,min=8" example:"securepassword"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric" example:"042137"`
}

type CustomerSignupResponse struct {
	CustomerID uuid.UUID `json:"customerId"`
}

type CustomerAuthResponse struct {
	Token    string                 `json:"token"`
	Customer models.CustomerSummary `json:"customer"`
}

// Signup creates an unverified customer and emails an OTP
// @Summary Customer signup
// @Tags customer-auth
// @Accept json
// @Produce json
// @Param request body CustomerSignupRequest true "Signup data"
// @Success 201 {object} response.Envelope{data=CustomerSignupResponse}
// @Failure 400 {object} response.Envelope "Validation error or email already registered"
// @Router /customer-auth/signup [post]
func (h *CustomerAuthHandler) Signup(c *gin.Context) {
	var req CustomerSignupRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	email := utils.NormalizeEmail(req.Email)

	if _, err := h.customers.GetCustomerByEmail(ctx, email); err == nil {
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
	code, expires, err := utils.GenerateOTP(h.now())
	if err != nil {
		c.Error(err)
		return
	}

	customer := &models.Customer{
		Name:         req.Name,
		Email:        email,
		Phone:        req.Phone,
		Company:      req.Company,
		Password:     hashedPassword,
		Status:       models.CustomerStatusActive,
		IsVerified:   false,
		OTPCode:      &code,
		OTPExpiresAt: &expires,
	}
	if err := h.customers.CreateCustomer(ctx, customer); err != nil {
		var dupErr *store.DuplicateError
		if errors.As(err, &dupErr) {
			err = apperror.Wrap(err, http.StatusBadRequest, "Email already registered")
		}
		c.Error(err)
		return
	}

	h.notifier.SendCustomerOTP(detached(c), customer, code)
	response.Success(c, http.StatusCreated, "Signup successful. Please verify OTP sent to email.", CustomerSignupResponse{CustomerID: customer.ID})
}

// VerifyOTP marks the customer verified and returns a customer token
// @Summary Verify signup OTP
// @Tags customer-auth
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Email and OTP"
// @Success 200 {object} response.Envelope{data=CustomerAuthResponse}
// @Failure 400 {object} response.Envelope "OTP expired or invalid"
// @Failure 404 {object} response.Envelope "Customer not found"
// @Router /customer-auth/verify-otp [post]
func (h *CustomerAuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	customer, err := h.customers.GetCustomerByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}
	if customer.IsVerified {
		response.Success(c, http.StatusOK, "Already verified", nil)
		return
	}

	now := h.now()
	if customer.OTPCode == nil || customer.OTPExpiresAt == nil || !customer.OTPExpiresAt.After(now) {
		c.Error(apperror.BadRequest("OTP expired. Please request a new one."))
		return
	}
	if !utils.SecureCompare(*customer.OTPCode, req.OTP) {
		c.Error(apperror.BadRequest("Invalid OTP"))
		return
	}

	verified, err := h.customers.VerifyCustomerOTP(ctx, customer.ID, req.OTP, now)
	if err != nil {
		c.Error(err)
		return
	}
	if !verified {
		// a concurrent resend replaced the code
		c.Error(apperror.BadRequest("Invalid OTP"))
		return
	}

	token, err := h.tokens.GenerateCustomerToken(customer.ID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Verification successful", CustomerAuthResponse{Token: token, Customer: customer.Summary()})
}

// Login authenticates a verified customer
// @Summary Customer login
// @Tags customer-auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope{data=CustomerAuthResponse}
// @Failure 401 {object} response.Envelope "Invalid email or password"
// @Failure 403 {object} response.Envelope "Not verified or inactive"
// @Router /customer-auth/login [post]
func (h *CustomerAuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	customer, err := h.customers.GetCustomerByEmail(c.Request.Context(), utils.NormalizeEmail(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.Error(err)
		return
	}
	if customer == nil || !utils.CheckPasswordHash(req.Password, customer.Password) {
		c.Error(apperror.Unauthorized("Invalid email or password"))
		return
	}
	if !customer.IsVerified {
		c.Error(apperror.Forbidden("Please verify your email via OTP first"))
		return
	}
	if customer.Status == models.CustomerStatusInactive {
		c.Error(apperror.Forbidden("Account is inactive"))
		return
	}

	token, err := h.tokens.GenerateCustomerToken(customer.ID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Login successful", CustomerAuthResponse{Token: token, Customer: customer.Summary()})
}

// ResendOTP issues a fresh OTP to an unverified customer
// @Summary Resend signup OTP
// @Tags customer-auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Customer email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope "Customer not found"
// @Router /customer-auth/resend-otp [post]
func (h *CustomerAuthHandler) ResendOTP(c *gin.Context) {
	var req EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	customer, err := h.customers.GetCustomerByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}
	if customer.IsVerified {
		response.Success(c, http.StatusOK, "Already verified", nil)
		return
	}

	code, expires, err := utils.GenerateOTP(h.now())
	if err != nil {
		c.Error(err)
		return
	}
	stored, err := h.customers.SetCustomerOTP(ctx, customer.ID, code, expires)
	if err != nil {
		c.Error(err)
		return
	}
	if !stored {
		// verified since the lookup above
		response.Success(c, http.StatusOK, "Already verified", nil)
		return
	}

	h.notifier.SendCustomerOTP(detached(c), customer, code)
	response.Success(c, http.StatusOK, "OTP resent successfully", nil)
}

// ForgotPassword emails a one-hour reset link to the customer
// @Summary Customer forgot password
// @Tags customer-auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Customer email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope "Customer not found"
// @Router /customer-auth/forgot-password [post]
func (h *CustomerAuthHandler) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	customer, err := h.customers.GetCustomerByEmail(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}

	token, expires, err := utils.GenerateResetToken(h.now())
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.customers.SetCustomerResetToken(ctx, customer.ID, token, expires); err != nil {
		c.Error(notFoundAs(err, "Customer not found"))
		return
	}

	h.notifier.SendCustomerPasswordReset(detached(c), customer, token)
	response.Success(c, http.StatusOK, "Password reset email sent", nil)
}

// ResetPassword consumes a customer reset token
// @Summary Customer reset password
// @Tags customer-auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "Invalid or expired reset token"
// @Router /customer-auth/reset-password [post]
func (h *CustomerAuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	reset, err := h.customers.ResetCustomerPassword(c.Request.Context(), req.Token, hashedPassword, h.now())
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

// Me returns the authenticated customer
// @Summary Current customer
// @Tags customer-auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.Customer}
// @Failure 401 {object} response.Envelope
// @Router /customer-auth/me [get]
func (h *CustomerAuthHandler) Me(c *gin.Context) {
	response.Success(c, http.StatusOK, "Customer retrieved successfully", identityFrom(c).Customer)
}
