package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	OTPLength          = 6
	OTPValidity        = 10 * time.Minute
	ResetTokenBytes    = 32
	ResetTokenValidity = time.Hour
)

// Generate Random String (for password reset token)
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Generate Numeric code (for the 6 digit customer OTP)
func GenerateNumericCode(length int) (string, error) {
	max := new(big.Int)
	max.Exp(big.NewInt(10), big.NewInt(int64(length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", length, n), nil
}

// GenerateOTP returns a fresh 6 digit code and its expiry
func GenerateOTP(now time.Time) (string, time.Time, error) {
	code, err := GenerateNumericCode(OTPLength)
	if err != nil {
		return "", time.Time{}, err
	}
	return code, now.Add(OTPValidity), nil
}

// GenerateResetToken returns a 32 byte hex token and its expiry
func GenerateResetToken(now time.Time) (string, time.Time, error) {
	token, err := GenerateRandomToken(ResetTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, now.Add(ResetTokenValidity), nil
}

// SecureCompare compares two secrets in constant time
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
