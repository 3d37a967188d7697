// Package handlers implements the HTTP endpoints of the meeting service.
//
// Handlers never write error responses themselves: they push the error with
// c.Error and middleware.ErrorHandler renders it.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/meeting-service/services"
	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/clients"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
)

// Notifier sends the service's notification emails. Handlers treat every
// send as best effort: failures are logged by the notifier and ignored here.
type Notifier interface {
	SendUserWelcome(ctx context.Context, user *models.User) error
	SendUserPasswordReset(ctx context.Context, user *models.User, token string) error
	SendCustomerOTP(ctx context.Context, customer *models.Customer, code string) error
	SendCustomerWelcome(ctx context.Context, customer *models.Customer) error
	SendCustomerPasswordReset(ctx context.Context, customer *models.Customer, token string) error
	SendMeetingConfirmation(ctx context.Context, meeting *models.Meeting, to services.Recipient) error
	SendMeetingCancelled(ctx context.Context, meeting *models.Meeting, to services.Recipient) error
	SendCustomerAssigned(ctx context.Context, customer *models.Customer, assignee *models.User) error
	SendCustomerReassigned(ctx context.Context, customer *models.Customer, previous *models.User) error
}

// MeetingProvider creates and deletes remote video meetings
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, req clients.ZoomMeetingRequest) (*clients.ZoomMeeting, error)
	DeleteMeeting(ctx context.Context, meetingID string) error
}

// PaymentProvider creates payment orders and checks checkout signatures
type PaymentProvider interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*clients.RazorpayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// EventPublisher pushes realtime events to a connected staff user
type EventPublisher interface {
	Publish(userID uuid.UUID, event services.Event)
}

// SlotCache caches availability queries
type SlotCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// AvatarStorage stores profile images
type AvatarStorage interface {
	PutAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader, size int64) (string, error)
	RemoveAvatar(ctx context.Context, avatarURL string) error
}

const msgNotAuthorized = "Not authorized to access this resource"

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.Error(err)
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.Error(apperror.Wrap(err, http.StatusBadRequest, "Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// identityFrom returns the identity set by the auth middleware. Routes are
// always mounted behind it, so a missing identity is a wiring bug.
func identityFrom(c *gin.Context) *utils.Identity {
	identity, ok := utils.GetIdentity(c)
	if !ok {
		panic("handlers: route mounted without authentication middleware")
	}
	return identity
}

// notFoundAs maps store.ErrNotFound to a 404 with message
func notFoundAs(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.Wrap(err, http.StatusNotFound, message)
	}
	return err
}

// detached keeps request values for best-effort work after the response deadline
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
