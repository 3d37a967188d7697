package utils

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"meetdesk-backend/shared/database/models"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	userID := uuid.New()
	token, err := tm.GenerateUserToken(userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := tm.Validate(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != userID.String() || claims.IsCustomer() {
		t.Fatalf("unexpected claims %+v", claims)
	}

	customerID := uuid.New()
	token, err = tm.GenerateCustomerToken(customerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err = tm.Validate(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.CustomerID != customerID.String() || claims.Type != "customer" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenManagerRejectsExpiredAndForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return issuedAt }

	token, err := tm.GenerateUserToken(uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tm.now = time.Now
	if _, err := tm.Validate(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}

	other := NewTokenManager("other-secret", time.Hour)
	foreign, _ := other.GenerateUserToken(uuid.New())
	if _, err := tm.Validate(foreign); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !CheckPasswordHash("hunter22", hash) {
		t.Fatalf("expected password to match")
	}
	if CheckPasswordHash("hunter23", hash) {
		t.Fatalf("expected wrong password to fail")
	}
	if CheckPasswordHash("anything", "") {
		t.Fatalf("expected empty hash to never match")
	}
}

func TestGenerateOTPAndResetToken(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	code, expires, err := GenerateOTP(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^\d{6}$`).MatchString(code) {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	if !expires.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected otp expiry %v", expires)
	}

	token, expires, err := GenerateResetToken(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected reset expiry %v", expires)
	}
}

func TestIdentityCapabilities(t *testing.T) {
	admin := StaffIdentity(&models.User{ID: uuid.New(), Role: models.RoleAdmin})
	agent := StaffIdentity(&models.User{ID: uuid.New(), Role: models.RoleAgent})
	customer := CustomerIdentity(&models.Customer{ID: uuid.New()})

	cases := []struct {
		name     string
		identity *Identity
		cap      Capability
		want     bool
	}{
		{"admin deletes customers", admin, CapCustomersDelete, true},
		{"agent deletes customers", agent, CapCustomersDelete, false},
		{"agent writes meetings", agent, CapMeetingsWrite, true},
		{"agent reads all meetings", agent, CapMeetingsReadAll, false},
		{"admin reads all meetings", admin, CapMeetingsReadAll, true},
		{"customer pays", customer, CapPaymentsWrite, true},
		{"customer writes slots", customer, CapSlotsWrite, false},
		{"unknown role", StaffIdentity(&models.User{Role: "owner"}), CapMeetingsWrite, false},
		{"nil identity", nil, CapPaymentsWrite, false},
	}

	for _, tc := range cases {
		if got := tc.identity.Can(tc.cap); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if customer.ID() != customer.Customer.ID || admin.ID() != admin.User.ID {
		t.Fatalf("identity ids do not match their principals")
	}
}
