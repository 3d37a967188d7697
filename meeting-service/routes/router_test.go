package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"meetdesk-backend/meeting-service/middleware"
	"meetdesk-backend/meeting-service/services"
	"meetdesk-backend/shared/clients"
	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/metrics"
	"meetdesk-backend/shared/store/storetest"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/cache"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu   sync.Mutex
	sent []services.EmailMessage
}

func (o *outbox) Send(ctx context.Context, msg services.EmailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

var otpPattern = regexp.MustCompile(`>(\d{6})</h1>`)

// lastOTP waits for the OTP email to recipient, since notifications are sent off the request path
func (o *outbox) lastOTP(t *testing.T, recipient string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		o.mu.Lock()
		for i := len(o.sent) - 1; i >= 0; i-- {
			msg := o.sent[i]
			if len(msg.To) == 1 && msg.To[0] == recipient && msg.Subject == "Your OTP Code" {
				o.mu.Unlock()
				if match := otpPattern.FindStringSubmatch(msg.Body); match != nil {
					return match[1]
				}
				t.Fatalf("OTP email to %s has no code", recipient)
			}
		}
		o.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no OTP email sent to %s", recipient)
	return ""
}

type stubZoom struct{}

func (stubZoom) CreateMeeting(ctx context.Context, req clients.ZoomMeetingRequest) (*clients.ZoomMeeting, error) {
	return &clients.ZoomMeeting{ID: "987654321", JoinURL: "https://zoom.example.com/j/987654321", Password: "secret"}, nil
}

func (stubZoom) DeleteMeeting(ctx context.Context, meetingID string) error {
	return nil
}

type stubRazorpay struct{}

func (stubRazorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*clients.RazorpayOrder, error) {
	return &clients.RazorpayOrder{ID: "order_router", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (stubRazorpay) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == "good"
}

func (stubRazorpay) KeyID() string {
	return "rzp_test_router"
}

type harness struct {
	t        *testing.T
	store    *storetest.MemoryStore
	mail     *outbox
	registry *prometheus.Registry
	router   *gin.Engine
}

func newHarness(t *testing.T, mutate func(*Dependencies)) *harness {
	t.Helper()
	templates, err := services.NewTemplateService("MeetDesk")
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}

	h := &harness{
		t:        t,
		store:    storetest.NewMemoryStore(),
		mail:     &outbox{},
		registry: prometheus.NewRegistry(),
	}
	m := metrics.New("meetdesk_test", h.registry)
	cfg := &config.Config{
		Environment:    "test",
		FrontendURL:    "http://localhost:3000",
		AvatarMaxBytes: 1 << 20,
	}

	deps := Dependencies{
		Config:    cfg,
		Store:     h.store,
		Tokens:    utils.NewTokenManager("router-test-secret", time.Hour),
		Notifier:  services.NewNotifier(h.mail, templates, cfg.FrontendURL, 15*time.Minute, m),
		Meetings:  stubZoom{},
		Payments:  stubRazorpay{},
		Events:    services.NewHub(cfg.FrontendURL),
		Stream:    services.NewHub(cfg.FrontendURL),
		SlotCache: (*cache.CacheManager)(nil),
		Metrics:   m,
		Gatherer:  h.registry,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.router = NewRouter(deps)
	return h
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func (h *harness) call(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			h.t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			h.t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func (h *harness) expect(w *httptest.ResponseRecorder, env envelope, status int, message string) {
	h.t.Helper()
	if w.Code != status {
		h.t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if message != "" && env.Message != message {
		h.t.Fatalf("expected message %q, got %q", message, env.Message)
	}
}

func decode(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("failed to decode %s: %v", env.Data, err)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)

	w, env := h.call(http.MethodGet, "/health", "", nil)
	h.expect(w, env, http.StatusOK, "Service healthy")
	var status healthStatus
	decode(t, env, &status)
	if status.Status != "healthy" || status.Checks["database"] != "ok" {
		t.Errorf("unexpected health %+v", status)
	}

	h.store.PingErr = errors.New("connection refused")
	w, env = h.call(http.MethodGet, "/health", "", nil)
	h.expect(w, env, http.StatusServiceUnavailable, "Service unhealthy")
	if env.Success {
		t.Error("expected success=false")
	}
	decode(t, env, &status)
	if status.Checks["database"] != "connection refused" {
		t.Errorf("expected the database error, got %+v", status.Checks)
	}
}

func TestHealthRunsExtraChecks(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.Checks = map[string]HealthCheck{
			"redis": func(ctx context.Context) error { return errors.New("redis down") },
		}
	})

	w, env := h.call(http.MethodGet, "/health", "", nil)
	h.expect(w, env, http.StatusServiceUnavailable, "")
	var status healthStatus
	decode(t, env, &status)
	if status.Checks["database"] != "ok" || status.Checks["redis"] != "redis down" {
		t.Errorf("unexpected checks %+v", status.Checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.call(http.MethodGet, "/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "meetdesk_test_http_requests_total") {
		t.Errorf("expected request metrics in the exposition, got %s", w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, nil)

	w, env := h.call(http.MethodGet, "/api/nope", "", nil)
	h.expect(w, env, http.StatusNotFound, "Route /api/nope not found")
	if env.Success {
		t.Error("expected success=false")
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newHarness(t, nil)

	w, _ := h.call(http.MethodGet, "/health", "", nil)
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected the frontend origin to be allowed, got %q", got)
	}
}

func TestAuthRateLimit(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.AuthLimiter = middleware.NewRateLimiter(context.Background(), middleware.RateLimitConfig{
			Requests:      1,
			Window:        time.Hour,
			Burst:         1,
			BlockDuration: time.Minute,
		}, 0)
	})

	w, env := h.call(http.MethodPost, "/api/auth/login", "", map[string]string{})
	h.expect(w, env, http.StatusBadRequest, "Validation Error")

	w, env = h.call(http.MethodPost, "/api/auth/login", "", map[string]string{})
	h.expect(w, env, http.StatusTooManyRequests, "Too many requests. Please try again later.")
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("expected Retry-After 60, got %q", w.Header().Get("Retry-After"))
	}

	// scopes are limited independently
	w, env = h.call(http.MethodPost, "/api/customer-auth/login", "", map[string]string{})
	h.expect(w, env, http.StatusBadRequest, "")
}

func TestWebSocketRouteRequiresStaff(t *testing.T) {
	h := newHarness(t, nil)

	w, env := h.call(http.MethodGet, "/ws/notifications", "", nil)
	h.expect(w, env, http.StatusUnauthorized, "No authentication token provided")

	withoutStream := newHarness(t, func(d *Dependencies) { d.Stream = nil })
	w, env = withoutStream.call(http.MethodGet, "/ws/notifications", "", nil)
	withoutStream.expect(w, env, http.StatusNotFound, "")
}

func TestSwaggerHiddenInProduction(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) { d.Config.Environment = "production" })

	w, env := h.call(http.MethodGet, "/swagger/index.html", "", nil)
	h.expect(w, env, http.StatusNotFound, "")
}

// TestCustomerJourney runs signup through payment against the assembled router.
func TestCustomerJourney(t *testing.T) {
	h := newHarness(t, nil)

	w, env := h.call(http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"email":      "ada@meetdesk.test",
		"password":   "securepassword",
		"department": "sales",
	})
	h.expect(w, env, http.StatusCreated, "User registered successfully")
	var staff struct {
		Token string `json:"token"`
	}
	decode(t, env, &staff)

	w, env = h.call(http.MethodPost, "/api/customer-auth/signup", "", map[string]string{
		"name":     "Grace Hopper",
		"email":    "grace@example.com",
		"phone":    "+911234567890",
		"password": "securepassword",
	})
	h.expect(w, env, http.StatusCreated, "")
	var signup struct {
		CustomerID string `json:"customerId"`
	}
	decode(t, env, &signup)

	otp := h.mail.lastOTP(t, "grace@example.com")
	w, env = h.call(http.MethodPost, "/api/customer-auth/verify-otp", "", map[string]string{"email": "grace@example.com", "otp": otp})
	h.expect(w, env, http.StatusOK, "Verification successful")
	var customer struct {
		Token string `json:"token"`
	}
	decode(t, env, &customer)

	w, env = h.call(http.MethodPost, "/api/meetings", staff.Token, map[string]interface{}{
		"title":           "Consultation",
		"customerId":      signup.CustomerID,
		"startTime":       time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"paymentRequired": true,
		"price":           1500,
	})
	h.expect(w, env, http.StatusCreated, "Meeting created successfully")
	var meeting struct {
		ID            string `json:"id"`
		ZoomMeetingID string `json:"zoomMeetingId"`
	}
	decode(t, env, &meeting)
	if meeting.ZoomMeetingID != "987654321" {
		t.Errorf("expected the provider meeting id, got %q", meeting.ZoomMeetingID)
	}

	// customers cannot reach staff routes
	w, env = h.call(http.MethodGet, "/api/meetings/"+meeting.ID, customer.Token, nil)
	h.expect(w, env, http.StatusUnauthorized, "")

	w, env = h.call(http.MethodPost, "/api/payments/create-order", customer.Token, map[string]string{"meetingId": meeting.ID})
	h.expect(w, env, http.StatusCreated, "Order created")
	var order struct {
		OrderID string `json:"orderId"`
		Amount  int64  `json:"amount"`
	}
	decode(t, env, &order)
	if order.Amount != 150000 {
		t.Errorf("expected 150000 minor units, got %d", order.Amount)
	}

	w, env = h.call(http.MethodPost, "/api/payments/verify", customer.Token, map[string]string{
		"meetingId":           meeting.ID,
		"razorpay_order_id":   order.OrderID,
		"razorpay_payment_id": "pay_router",
		"razorpay_signature":  "good",
	})
	h.expect(w, env, http.StatusOK, "Payment verified successfully")

	w, env = h.call(http.MethodGet, "/api/meetings/"+meeting.ID, staff.Token, nil)
	h.expect(w, env, http.StatusOK, "")
	var final struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	decode(t, env, &final)
	if final.PaymentStatus != "paid" {
		t.Errorf("expected a paid meeting, got %q", final.PaymentStatus)
	}
}
