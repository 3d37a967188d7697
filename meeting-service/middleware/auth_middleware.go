package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
)

// Principals loads the accounts a token can refer to
type Principals interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Authenticator resolves bearer tokens into an Identity on the gin context
type Authenticator struct {
	tokens     *utils.TokenManager
	principals Principals
}

func NewAuthenticator(tokens *utils.TokenManager, principals Principals) *Authenticator {
	return &Authenticator{tokens: tokens, principals: principals}
}

const (
	msgNoToken          = "No authentication token provided"
	msgPleaseAuth       = "Please authenticate"
	msgUserInactive     = "User not found or inactive"
	msgCustomerInactive = "Customer not found or not verified"
	msgNotAuthorized    = "Not authorized to access this resource"
)

// RequireStaff admits active staff users only
func (a *Authenticator) RequireStaff() gin.HandlerFunc {
	return a.authenticate(true, false)
}

// RequireCustomer admits verified, non-inactive customers only
func (a *Authenticator) RequireCustomer() gin.HandlerFunc {
	return a.authenticate(false, true)
}

// RequireAny admits either an active staff user or a verified customer
func (a *Authenticator) RequireAny() gin.HandlerFunc {
	return a.authenticate(true, true)
}

func (a *Authenticator) authenticate(allowStaff, allowCustomer bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			abortWith(c, apperror.Unauthorized(msgNoToken))
			return
		}

		claims, err := a.tokens.Validate(tokenString)
		if err != nil {
			abortWith(c, apperror.Wrap(err, http.StatusUnauthorized, msgPleaseAuth))
			return
		}

		var identity *utils.Identity
		if claims.IsCustomer() {
			if !allowCustomer {
				abortWith(c, apperror.Unauthorized(msgUserInactive))
				return
			}
			identity, err = a.loadCustomer(c, claims.CustomerID)
		} else {
			if !allowStaff {
				abortWith(c, apperror.Unauthorized(msgCustomerInactive))
				return
			}
			identity, err = a.loadStaff(c, claims.UserID)
		}
		if err != nil {
			abortWith(c, err)
			return
		}

		utils.SetIdentity(c, identity)
		c.Next()
	}
}

func (a *Authenticator) loadStaff(c *gin.Context, rawID string) (*utils.Identity, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperror.Wrap(err, http.StatusUnauthorized, msgPleaseAuth)
	}
	user, err := a.principals.GetUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.Unauthorized(msgUserInactive)
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperror.Unauthorized(msgUserInactive)
	}
	return utils.StaffIdentity(user), nil
}

func (a *Authenticator) loadCustomer(c *gin.Context, rawID string) (*utils.Identity, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperror.Wrap(err, http.StatusUnauthorized, msgPleaseAuth)
	}
	customer, err := a.principals.GetCustomerByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.Unauthorized(msgCustomerInactive)
		}
		return nil, err
	}
	if !customer.CanLogin() {
		return nil, apperror.Unauthorized(msgCustomerInactive)
	}
	return utils.CustomerIdentity(customer), nil
}

// RequireCapability rejects identities lacking cap. It must run after an authenticate middleware.
func RequireCapability(capability utils.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := utils.GetIdentity(c)
		if !ok || !identity.Can(capability) {
			abortWith(c, apperror.Forbidden(msgNotAuthorized))
			return
		}
		c.Next()
	}
}

// ExtractToken returns the bearer token from the Authorization header.
// Websocket upgrades may pass it as ?token= instead.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return ""
		}
		return strings.TrimSpace(tokenParts[1])
	}
	if c.GetHeader("Upgrade") != "" {
		return c.Query("token")
	}
	return ""
}

func abortWith(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}
