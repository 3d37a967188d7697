package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const customerTokenType = "customer"

// Claims carries either a staff userId or a customerId, never both
type Claims struct {
	UserID     string `json:"userId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	Type       string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// IsCustomer reports whether the claims identify a customer
func (c *Claims) IsCustomer() bool {
	return c.CustomerID != ""
}

// TokenManager signs and validates HS256 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager. A zero ttl falls back to 24h.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateUserToken issues a staff token with payload {userId}
func (m *TokenManager) GenerateUserToken(userID uuid.UUID) (string, error) {
	return m.sign(Claims{UserID: userID.String()})
}

// GenerateCustomerToken issues a customer token with payload {customerId, type:"customer"}
func (m *TokenManager) GenerateCustomerToken(customerID uuid.UUID) (string, error) {
	return m.sign(Claims{CustomerID: customerID.String(), Type: customerTokenType})
}

func (m *TokenManager) sign(claims Claims) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a token and returns its claims. jwt sentinel errors
// (jwt.ErrTokenExpired, jwt.ErrTokenMalformed, ...) are preserved in the chain.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" && claims.CustomerID == "" {
		return nil, errors.New("token carries no identity")
	}
	if claims.UserID != "" && claims.CustomerID != "" {
		return nil, errors.New("token carries both user and customer identity")
	}

	return claims, nil
}
