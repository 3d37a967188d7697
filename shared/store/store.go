// Package store is the persistence boundary for users, customers, meetings and slots.
//
// Every state transition that must not race (slot booking, OTP verification,
// reset token consumption, payment order/verification, reminder marking) is a
// single conditional update reporting whether it applied.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meetdesk-backend/shared/database/models"
)

var (
	// ErrNotFound is returned when a lookup by id or key matches no row
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update lost a race
	ErrConflict = errors.New("conflicting update")
)

// DuplicateError reports a unique constraint violation on Field
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return "duplicate value"
	}
	return fmt.Sprintf("duplicate value for field %s", e.Field)
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// Page bounds a list query. A zero Limit returns every row.
type Page struct {
	Offset int
	Limit  int
}

type CustomerFilter struct {
	Status string
	Search string
	Page
}

// CustomerChanges names the columns a staff edit writes. Nil fields are left untouched.
type CustomerChanges struct {
	Name         *string
	Email        *string
	Phone        *string
	Company      *string
	Status       *string
	AssignedToID *uuid.UUID
}

type MeetingFilter struct {
	Status string
	HostID *uuid.UUID
	From   *time.Time
	To     *time.Time
	Page
}

type SlotFilter struct {
	UserID        *uuid.UUID
	From          *time.Time
	To            *time.Time
	OnlyAvailable bool
	Page
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetUserResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	// ResetUserPassword sets passwordHash on the user holding an unexpired token and clears the token
	ResetUserPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error)
}

type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, changes CustomerChanges) error
	// SetCustomerOTP stores a fresh OTP only while the customer is unverified
	SetCustomerOTP(ctx context.Context, id uuid.UUID, code string, expires time.Time) (bool, error)
	SetCustomerResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]models.Customer, int64, error)
	AddCustomerNote(ctx context.Context, note *models.CustomerNote) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	// VerifyCustomerOTP flips isVerified when code matches an unexpired OTP and clears it
	VerifyCustomerOTP(ctx context.Context, id uuid.UUID, code string, now time.Time) (bool, error)
	ResetCustomerPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error)
}

type MeetingStore interface {
	CreateMeeting(ctx context.Context, meeting *models.Meeting) error
	GetMeetingByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id uuid.UUID, status string) error
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]models.Meeting, int64, error)
	// SetMeetingOrder replaces prevOrderID with orderID and resets paymentStatus to pending while the meeting is unpaid
	SetMeetingOrder(ctx context.Context, id uuid.UUID, prevOrderID, orderID string) (bool, error)
	MarkMeetingPaid(ctx context.Context, id uuid.UUID, orderID, paymentID, signature string) (bool, error)
	MarkMeetingPaymentFailed(ctx context.Context, id uuid.UUID, orderID string) (bool, error)
	// ListDueReminders returns scheduled meetings starting in [from, to] without a reminder
	ListDueReminders(ctx context.Context, from, to time.Time) ([]models.Meeting, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type SlotStore interface {
	CreateSlot(ctx context.Context, slot *models.Slot) error
	GetSlotByID(ctx context.Context, id uuid.UUID) (*models.Slot, error)
	ListSlots(ctx context.Context, filter SlotFilter) ([]models.Slot, int64, error)
	// BookSlot attaches meetingID to an unbooked slot
	BookSlot(ctx context.Context, slotID, meetingID uuid.UUID) (bool, error)
}

// Store is the full persistence surface used by the meeting service
type Store interface {
	UserStore
	CustomerStore
	MeetingStore
	SlotStore
	Ping(ctx context.Context) error
}
