package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
	CustomerStatusLead     = "lead"
)

type Customer struct {
	ID                   uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                 string         `json:"name" gorm:"size:200;not null"`
	Email                string         `json:"email" gorm:"uniqueIndex;not null"`
	Password             string         `json:"-"`
	Phone                string         `json:"phone" gorm:"size:30;not null"`
	Company              string         `json:"company,omitempty" gorm:"size:200"`
	Status               string         `json:"status" gorm:"size:20;not null;default:'lead'"`
	IsVerified           bool           `json:"isVerified" gorm:"not null;default:false"`
	OTPCode              *string        `json:"-" gorm:"column:otp_code;size:6"`
	OTPExpiresAt         *time.Time     `json:"-" gorm:"column:otp_expires_at"`
	ResetPasswordToken   *string        `json:"-" gorm:"size:64;index"`
	ResetPasswordExpires *time.Time     `json:"-"`
	Notes                []CustomerNote `json:"notes" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	AssignedToID         *uuid.UUID     `json:"assignedToId,omitempty" gorm:"type:uuid;index"`
	AssignedTo           *User          `json:"assignedTo,omitempty" gorm:"foreignKey:AssignedToID"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

func (Customer) TableName() string {
	return "customers"
}

// CanLogin reports whether the customer finished OTP verification and is not disabled
func (c Customer) CanLogin() bool {
	return c.IsVerified && c.Status != CustomerStatusInactive
}

// CustomerNote is a free-text note written by a staff user
type CustomerNote struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CustomerID  uuid.UUID  `json:"customerId" gorm:"type:uuid;not null;index"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	CreatedByID *uuid.UUID `json:"createdById,omitempty" gorm:"type:uuid"`
	CreatedBy   *User      `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (CustomerNote) TableName() string {
	return "customer_notes"
}

// CustomerSummary is the reduced view returned from customer auth endpoints
type CustomerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (c Customer) Summary() CustomerSummary {
	return CustomerSummary{ID: c.ID, Name: c.Name, Email: c.Email}
}
