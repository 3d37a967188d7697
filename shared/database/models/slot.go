package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Slot is an availability window owned by a staff user. It can be booked once.
type Slot struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID     uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	User       *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	StartTime  time.Time  `json:"startTime" gorm:"not null;index"`
	EndTime    time.Time  `json:"endTime" gorm:"not null"`
	IsBooked   bool       `json:"isBooked" gorm:"not null;default:false;index"`
	MeetingID  *uuid.UUID `json:"meetingId,omitempty" gorm:"type:uuid"`
	Meeting    *Meeting   `json:"meeting,omitempty" gorm:"foreignKey:MeetingID"`
	Recurrence string     `json:"recurrence" gorm:"size:10;not null;default:'none'"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Slot) TableName() string {
	return "slots"
}
