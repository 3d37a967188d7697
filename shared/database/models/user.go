package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"

	UserStatusActive   = "active"
	UserStatusInactive = "inactive"

	DepartmentSales      = "sales"
	DepartmentSupport    = "support"
	DepartmentMarketing  = "marketing"
	DepartmentManagement = "management"
)

// TimeRange is a "HH:MM"-"HH:MM" window inside a weekday
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyAvailability maps a lowercase weekday name to its open windows
type WeeklyAvailability map[string][]TimeRange

type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

type UserPreferences struct {
	Timezone               string                  `json:"timezone"`
	Notifications          NotificationPreferences `json:"notifications"`
	DefaultMeetingDuration int                     `json:"defaultMeetingDuration"`
}

// DefaultUserPreferences mirrors the defaults applied to new staff accounts
func DefaultUserPreferences() UserPreferences {
	return UserPreferences{
		Timezone:               "UTC",
		Notifications:          NotificationPreferences{Email: true, Push: true},
		DefaultMeetingDuration: 30,
	}
}

type User struct {
	ID                   uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirstName            string             `json:"firstName" gorm:"size:100;not null"`
	LastName             string             `json:"lastName" gorm:"size:100;not null"`
	Email                string             `json:"email" gorm:"uniqueIndex;not null"`
	Password             string             `json:"-" gorm:"not null"`
	Role                 string             `json:"role" gorm:"size:20;not null;default:'agent'"`
	Department           string             `json:"department" gorm:"size:20;not null"`
	Status               string             `json:"status" gorm:"size:20;not null;default:'active'"`
	ZoomUserID           string             `json:"zoomUserId,omitempty" gorm:"size:100"`
	ProfileImage         string             `json:"profileImage,omitempty"`
	PhoneNumber          string             `json:"phoneNumber,omitempty" gorm:"size:30"`
	AvailableHours       WeeklyAvailability `json:"availableHours,omitempty" gorm:"type:jsonb;serializer:json"`
	Preferences          UserPreferences    `json:"preferences" gorm:"type:jsonb;serializer:json"`
	LastLogin            *time.Time         `json:"lastLogin,omitempty"`
	ResetPasswordToken   *string            `json:"-" gorm:"size:64;index"`
	ResetPasswordExpires *time.Time         `json:"-"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins first and last name
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsActive reports whether the account may authenticate
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}

// UserSummary is the reduced view embedded in auth responses
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}
