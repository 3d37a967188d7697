package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/meeting-service/middleware"
	"meetdesk-backend/meeting-service/services"
	"meetdesk-backend/shared/clients"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store/storetest"
	utils "meetdesk-backend/shared/utils/auth"
	"meetdesk-backend/shared/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.UseJSONFieldNames()
}

// Fakes

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *fakeNotifier) record(kind, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: kind, to: to, token: token})
	return nil
}

func (n *fakeNotifier) find(kind, to string) (sentMail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind && n.sent[i].to == to {
			return n.sent[i], true
		}
	}
	return sentMail{}, false
}

func (n *fakeNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, m := range n.sent {
		if m.kind == kind {
			total++
		}
	}
	return total
}

func (n *fakeNotifier) SendUserWelcome(ctx context.Context, user *models.User) error {
	return n.record("user-welcome", user.Email, "")
}

func (n *fakeNotifier) SendUserPasswordReset(ctx context.Context, user *models.User, token string) error {
	return n.record("user-reset", user.Email, token)
}

func (n *fakeNotifier) SendCustomerOTP(ctx context.Context, customer *models.Customer, code string) error {
	return n.record("customer-otp", customer.Email, code)
}

func (n *fakeNotifier) SendCustomerWelcome(ctx context.Context, customer *models.Customer) error {
	return n.record("customer-welcome", customer.Email, "")
}

func (n *fakeNotifier) SendCustomerPasswordReset(ctx context.Context, customer *models.Customer, token string) error {
	return n.record("customer-reset", customer.Email, token)
}

func (n *fakeNotifier) SendMeetingConfirmation(ctx context.Context, meeting *models.Meeting, to services.Recipient) error {
	return n.record("meeting-confirmation", to.Email, "")
}

func (n *fakeNotifier) SendMeetingCancelled(ctx context.Context, meeting *models.Meeting, to services.Recipient) error {
	return n.record("meeting-cancelled", to.Email, "")
}

func (n *fakeNotifier) SendCustomerAssigned(ctx context.Context, customer *models.Customer, assignee *models.User) error {
	return n.record("customer-assigned", assignee.Email, "")
}

func (n *fakeNotifier) SendCustomerReassigned(ctx context.Context, customer *models.Customer, previous *models.User) error {
	return n.record("customer-reassigned", previous.Email, "")
}

type fakeMeetingProvider struct {
	mu        sync.Mutex
	createErr error
	deleteErr error
	created   []clients.ZoomMeetingRequest
	deleted   []string
}

func (p *fakeMeetingProvider) CreateMeeting(ctx context.Context, req clients.ZoomMeetingRequest) (*clients.ZoomMeeting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.created = append(p.created, req)
	return &clients.ZoomMeeting{
		ID:       "zm-" + uuid.NewString()[:8],
		JoinURL:  "https://zoom.example.com/j/123",
		StartURL: "https://zoom.example.com/s/123",
		Password: "pw123",
	}, nil
}

func (p *fakeMeetingProvider) DeleteMeeting(ctx context.Context, meetingID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deleted = append(p.deleted, meetingID)
	return nil
}

type orderCall struct {
	amount   int64
	currency string
	receipt  string
	notes    map[string]string
}

type fakePaymentProvider struct {
	mu       sync.Mutex
	orders   []orderCall
	orderErr error
}

const validSignature = "valid-signature"

func (p *fakePaymentProvider) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*clients.RazorpayOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.orderErr != nil {
		return nil, p.orderErr
	}
	p.orders = append(p.orders, orderCall{amount: amount, currency: currency, receipt: receipt, notes: notes})
	return &clients.RazorpayOrder{
		ID:       "order_" + uuid.NewString()[:8],
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (p *fakePaymentProvider) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == validSignature
}

func (p *fakePaymentProvider) KeyID() string {
	return "rzp_test_key"
}

type publishedEvent struct {
	userID uuid.UUID
	event  services.Event
}

type fakeEvents struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (e *fakeEvents) Publish(userID uuid.UUID, event services.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, publishedEvent{userID: userID, event: event})
}

func (e *fakeEvents) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.event.Type)
	}
	return out
}

type fakeCache struct {
	mu            sync.Mutex
	entries       map[string][]byte
	hits          int
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dest)
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *fakeCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.invalidations++
	return nil
}

type fakeAvatars struct {
	mu      sync.Mutex
	stored  map[string][]byte
	removed []string
	putErr  error
}

func (a *fakeAvatars) PutAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader, size int64) (string, error) {
	if a.putErr != nil {
		return "", a.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	url := "https://cdn.example.com/" + services.AvatarObjectKey(userID, filename)
	a.stored[url] = data
	return url, nil
}

func (a *fakeAvatars) RemoveAvatar(ctx context.Context, avatarURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, avatarURL)
	return nil
}

// Test server

type testServer struct {
	t        *testing.T
	store    *storetest.MemoryStore
	tokens   *utils.TokenManager
	notifier *fakeNotifier
	zoom     *fakeMeetingProvider
	payments *fakePaymentProvider
	events   *fakeEvents
	cache    *fakeCache
	avatars  *fakeAvatars
	router   *gin.Engine
	now      time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		t:        t,
		store:    storetest.NewMemoryStore(),
		tokens:   utils.NewTokenManager("handlers-test-secret", time.Hour),
		notifier: &fakeNotifier{},
		zoom:     &fakeMeetingProvider{},
		payments: &fakePaymentProvider{},
		events:   &fakeEvents{},
		cache:    newFakeCache(),
		avatars:  &fakeAvatars{stored: make(map[string][]byte)},
		now:      time.Now().UTC(),
	}
	clock := func() time.Time { return s.now }

	authHandler := NewAuthHandler(s.store, s.tokens, s.notifier)
	authHandler.now = clock
	customerAuthHandler := NewCustomerAuthHandler(s.store, s.tokens, s.notifier)
	customerAuthHandler.now = clock
	customerHandler := NewCustomerHandler(s.store, s.store, s.notifier)
	meetingHandler := NewMeetingHandler(s.store, s.zoom, s.notifier, s.events)
	meetingHandler.now = clock
	slotHandler := NewSlotHandler(s.store, s.store, s.cache)
	paymentHandler := NewPaymentHandler(s.store, s.payments, s.events)
	profileHandler := NewProfileHandler(s.store, s.avatars, 1<<20)

	authn := middleware.NewAuthenticator(s.tokens, s.store)
	staff := authn.RequireStaff()
	can := middleware.RequireCapability

	r := gin.New()
	r.Use(middleware.ErrorHandler(false, nil))

	api := r.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/password-reset", authHandler.RequestPasswordReset)
	api.POST("/auth/reset-password", authHandler.ResetPassword)
	api.GET("/auth/me", staff, authHandler.Me)

	api.POST("/customer-auth/signup", customerAuthHandler.Signup)
	api.POST("/customer-auth/verify-otp", customerAuthHandler.VerifyOTP)
	api.POST("/customer-auth/login", customerAuthHandler.Login)
	api.POST("/customer-auth/resend-otp", customerAuthHandler.ResendOTP)
	api.POST("/customer-auth/forgot-password", customerAuthHandler.ForgotPassword)
	api.POST("/customer-auth/reset-password", customerAuthHandler.ResetPassword)
	api.GET("/customer-auth/me", authn.RequireCustomer(), customerAuthHandler.Me)

	api.POST("/customers", staff, can(utils.CapCustomersWrite), customerHandler.Create)
	api.GET("/customers", staff, customerHandler.List)
	api.GET("/customers/:id", staff, customerHandler.Get)
	api.PUT("/customers/:id", staff, can(utils.CapCustomersWrite), customerHandler.Update)
	api.POST("/customers/:id/notes", staff, can(utils.CapCustomersWrite), customerHandler.AddNote)
	api.DELETE("/customers/:id", staff, can(utils.CapCustomersDelete), customerHandler.Delete)

	api.POST("/meetings", staff, can(utils.CapMeetingsWrite), meetingHandler.Create)
	api.GET("/meetings", staff, meetingHandler.List)
	api.GET("/meetings/:id", staff, meetingHandler.Get)
	api.PATCH("/meetings/:id/status", staff, can(utils.CapMeetingsWrite), meetingHandler.UpdateStatus)

	api.POST("/slots", staff, can(utils.CapSlotsWrite), slotHandler.Create)
	api.GET("/slots/available", staff, slotHandler.Available)
	api.POST("/slots/book", staff, can(utils.CapSlotsWrite), slotHandler.Book)
	api.GET("/slots/my-slots", staff, slotHandler.MySlots)

	api.POST("/payments/create-order", authn.RequireAny(), can(utils.CapPaymentsWrite), paymentHandler.CreateOrder)
	api.POST("/payments/verify", authn.RequireAny(), can(utils.CapPaymentsWrite), paymentHandler.Verify)

	api.GET("/users/me", staff, profileHandler.Get)
	api.PUT("/users/me", staff, profileHandler.Update)
	api.POST("/users/me/avatar", staff, profileHandler.UploadAvatar)
	api.PUT("/users/:id/role", staff, can(utils.CapUsersManage), profileHandler.UpdateRole)

	s.router = r
	return s
}

type envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       json.RawMessage      `json:"data"`
	Pagination *response.Pagination `json:"pagination"`
	Errors     []string             `json:"errors"`
}

type result struct {
	code int
	env  envelope
	raw  string
}

func (r result) into(t *testing.T, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.env.Data, dest); err != nil {
		t.Fatalf("failed to decode data %s: %v", r.env.Data, err)
	}
}

func (s *testServer) serve(req *http.Request) result {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	res := result{code: w.Code, raw: w.Body.String()}
	if err := json.Unmarshal(w.Body.Bytes(), &res.env); err != nil {
		s.t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return res
}

func (s *testServer) do(method, path, token string, body interface{}) result {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(req)
}

func expectStatus(t *testing.T, res result, status int, message string) {
	t.Helper()
	if res.code != status {
		t.Fatalf("expected status %d, got %d: %s", status, res.code, res.raw)
	}
	if message != "" && res.env.Message != message {
		t.Fatalf("expected message %q, got %q", message, res.env.Message)
	}
}

const testPassword = "correct-horse"

func (s *testServer) staff(role string) (*models.User, string) {
	s.t.Helper()
	hash, err := utils.HashPassword(testPassword)
	if err != nil {
		s.t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		FirstName:   "Staff",
		LastName:    role,
		Email:       role + "-" + uuid.NewString()[:8] + "@meetdesk.test",
		Password:    hash,
		Role:        role,
		Department:  models.DepartmentSales,
		Status:      models.UserStatusActive,
		ZoomUserID:  "zoom-" + role,
		Preferences: models.DefaultUserPreferences(),
	}
	if err := s.store.CreateUser(context.Background(), user); err != nil {
		s.t.Fatalf("failed to create user: %v", err)
	}
	token, err := s.tokens.GenerateUserToken(user.ID)
	if err != nil {
		s.t.Fatalf("failed to sign token: %v", err)
	}
	return user, token
}

func (s *testServer) customer(assignee *models.User) *models.Customer {
	s.t.Helper()
	customer := &models.Customer{
		Name:       "Grace Hopper",
		Email:      "grace-" + uuid.NewString()[:8] + "@example.com",
		Phone:      "+911234567890",
		Status:     models.CustomerStatusActive,
		IsVerified: true,
	}
	if assignee != nil {
		customer.AssignedToID = &assignee.ID
	}
	if err := s.store.CreateCustomer(context.Background(), customer); err != nil {
		s.t.Fatalf("failed to create customer: %v", err)
	}
	return customer
}

func (s *testServer) customerToken(customer *models.Customer) string {
	s.t.Helper()
	token, err := s.tokens.GenerateCustomerToken(customer.ID)
	if err != nil {
		s.t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func (s *testServer) meeting(host *models.User, customer *models.Customer, mutate func(*models.Meeting)) *models.Meeting {
	s.t.Helper()
	meeting := &models.Meeting{
		Title:         "Demo",
		CustomerID:    customer.ID,
		HostID:        host.ID,
		StartTime:     s.now.Add(time.Hour),
		Duration:      30,
		ZoomMeetingID: "zm-seeded",
		ZoomJoinURL:   "https://zoom.example.com/j/seeded",
		Status:        models.MeetingStatusScheduled,
		Currency:      models.DefaultCurrency,
		PaymentStatus: models.PaymentStatusPending,
	}
	if mutate != nil {
		mutate(meeting)
	}
	if err := s.store.CreateMeeting(context.Background(), meeting); err != nil {
		s.t.Fatalf("failed to create meeting: %v", err)
	}
	return meeting
}

var errProviderDown = errors.New("provider unavailable")
