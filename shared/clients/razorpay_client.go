package clients

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/metrics"
)

const (
	razorpayProvider = "razorpay"
	razorpayTimeout  = 15 * time.Second
)

// RazorpayOrder is the order resource returned by Razorpay
type RazorpayOrder struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// RazorpayClient creates orders and verifies checkout signatures
type RazorpayClient struct {
	keyID     string
	keySecret string
	baseURL   string
	api       apiCaller
}

func NewRazorpayClient(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics) *RazorpayClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(razorpayTimeout)
	}
	return &RazorpayClient{
		keyID:     cfg.RazorpayKeyID,
		keySecret: cfg.RazorpayKeySecret,
		baseURL:   strings.TrimRight(cfg.RazorpayBaseURL, "/"),
		api:       apiCaller{provider: razorpayProvider, httpClient: httpClient, metrics: m},
	}
}

// KeyID is the public key handed to the checkout widget
func (r *RazorpayClient) KeyID() string {
	return r.keyID
}

// AmountInMinorUnits converts a price to paise/cents, rounding half away from zero
func AmountInMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// CreateOrder creates an order for amount minor units
func (r *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*RazorpayOrder, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, errors.New("razorpay credentials are not configured")
	}

	payload := razorpayOrderPayload{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}

	var order RazorpayOrder
	err := r.api.do(ctx, "create_order", http.MethodPost, r.baseURL+"/orders", payload, &order, func(req *http.Request) {
		req.SetBasicAuth(r.keyID, r.keySecret)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Signature computes hex(HMAC-SHA256(secret, orderID|paymentID))
func (r *RazorpayClient) Signature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a checkout signature in constant time
func (r *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	expected := r.Signature(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
