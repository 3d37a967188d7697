package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MeetingStatusScheduled = "scheduled"
	MeetingStatusCompleted = "completed"
	MeetingStatusCancelled = "cancelled"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"

	DefaultCurrency        = "INR"
	DefaultMeetingDuration = 30
)

type Meeting struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title             string    `json:"title" gorm:"size:255;not null"`
	CustomerID        uuid.UUID `json:"customerId" gorm:"type:uuid;not null;index"`
	Customer          *Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	HostID            uuid.UUID `json:"hostId" gorm:"type:uuid;not null;index"`
	Host              *User     `json:"host,omitempty" gorm:"foreignKey:HostID"`
	StartTime         time.Time `json:"startTime" gorm:"not null;index"`
	Duration          int       `json:"duration" gorm:"not null;default:30"`
	ZoomMeetingID     string    `json:"zoomMeetingId" gorm:"size:100"`
	ZoomJoinURL       string    `json:"zoomJoinUrl"`
	Status            string    `json:"status" gorm:"size:20;not null;default:'scheduled';index"`
	Price             float64   `json:"price" gorm:"not null;default:0"`
	Currency          string    `json:"currency" gorm:"size:3;not null;default:'INR'"`
	PaymentRequired   bool      `json:"paymentRequired" gorm:"not null;default:false"`
	PaymentStatus     string    `json:"paymentStatus" gorm:"size:20;not null;default:'pending'"`
	RazorpayOrderID   string    `json:"razorpayOrderId,omitempty" gorm:"size:64;index"`
	RazorpayPaymentID string    `json:"razorpayPaymentId,omitempty" gorm:"size:64"`
	RazorpaySignature string    `json:"razorpaySignature,omitempty" gorm:"size:128"`
	Notes             string    `json:"notes,omitempty" gorm:"type:text"`
	ReminderSent      bool      `json:"reminderSent" gorm:"not null;default:false"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (Meeting) TableName() string {
	return "meetings"
}

// EndTime is StartTime plus Duration minutes
func (m Meeting) EndTime() time.Time {
	return m.StartTime.Add(time.Duration(m.Duration) * time.Minute)
}
