// Package storetest provides an in-memory store.Store for handler and service tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
)

// MemoryStore keeps rows in maps guarded by one mutex. Conditional updates
// behave like their SQL counterparts in GormStore.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]models.User
	customers map[uuid.UUID]models.Customer
	notes     map[uuid.UUID][]models.CustomerNote
	meetings  map[uuid.UUID]models.Meeting
	slots     map[uuid.UUID]models.Slot

	// PingErr is returned by Ping when set
	PingErr error
}

var _ store.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]models.User),
		customers: make(map[uuid.UUID]models.Customer),
		notes:     make(map[uuid.UUID][]models.CustomerNote),
		meetings:  make(map[uuid.UUID]models.Meeting),
		slots:     make(map[uuid.UUID]models.Slot),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.PingErr
}

func stamp(id *uuid.UUID, createdAt, updatedAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := time.Now().UTC()
	if createdAt != nil && createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt != nil {
		*updatedAt = now
	}
}

func page(total int, p store.Page) (int, int) {
	if p.Limit <= 0 {
		return 0, total
	}
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

// Users

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return &store.DuplicateError{Field: "email"}
		}
	}
	stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	for id, u := range m.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return &store.DuplicateError{Field: "email"}
		}
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) SetUserResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.ResetPasswordToken = &token
	u.ResetPasswordExpires = &expires
	m.users[id] = u
	return nil
}

func (m *MemoryStore) TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func tokenValid(token *string, expires *time.Time, want string, now time.Time) bool {
	return token != nil && *token == want && expires != nil && expires.After(now)
}

func (m *MemoryStore) ResetUserPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, u := range m.users {
		if tokenValid(u.ResetPasswordToken, u.ResetPasswordExpires, token, now) {
			u.Password = passwordHash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			m.users[id] = u
			return true, nil
		}
	}
	return false, nil
}

// Customers

func (m *MemoryStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.customers {
		if strings.EqualFold(c.Email, customer.Email) {
			return &store.DuplicateError{Field: "email"}
		}
	}
	stamp(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	row := *customer
	row.AssignedTo = nil
	row.Notes = nil
	m.customers[customer.ID] = row
	return nil
}

func (m *MemoryStore) attachCustomer(c models.Customer) *models.Customer {
	if c.AssignedToID != nil {
		if u, ok := m.users[*c.AssignedToID]; ok {
			c.AssignedTo = &u
		}
	}
	notes := make([]models.CustomerNote, 0, len(m.notes[c.ID]))
	for _, n := range m.notes[c.ID] {
		if n.CreatedByID != nil {
			if u, ok := m.users[*n.CreatedByID]; ok {
				n.CreatedBy = &u
			}
		}
		notes = append(notes, n)
	}
	c.Notes = notes
	return &c
}

func (m *MemoryStore) GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.attachCustomer(c), nil
}

func (m *MemoryStore) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.customers {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MemoryStore) UpdateCustomer(ctx context.Context, id uuid.UUID, changes store.CustomerChanges) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return store.ErrNotFound
	}
	if changes.Email != nil {
		for other, existing := range m.customers {
			if other != id && strings.EqualFold(existing.Email, *changes.Email) {
				return &store.DuplicateError{Field: "email"}
			}
		}
		c.Email = *changes.Email
	}
	if changes.Name != nil {
		c.Name = *changes.Name
	}
	if changes.Phone != nil {
		c.Phone = *changes.Phone
	}
	if changes.Company != nil {
		c.Company = *changes.Company
	}
	if changes.Status != nil {
		c.Status = *changes.Status
	}
	if changes.AssignedToID != nil {
		assignee := *changes.AssignedToID
		c.AssignedToID = &assignee
	}
	c.UpdatedAt = time.Now().UTC()
	m.customers[id] = c
	return nil
}

func (m *MemoryStore) SetCustomerOTP(ctx context.Context, id uuid.UUID, code string, expires time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok || c.IsVerified {
		return false, nil
	}
	c.OTPCode = &code
	c.OTPExpiresAt = &expires
	m.customers[id] = c
	return true, nil
}

func (m *MemoryStore) SetCustomerResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return store.ErrNotFound
	}
	c.ResetPasswordToken = &token
	c.ResetPasswordExpires = &expires
	m.customers[id] = c
	return nil
}

func (m *MemoryStore) ListCustomers(ctx context.Context, filter store.CustomerFilter) ([]models.Customer, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var matched []models.Customer
	for _, c := range m.customers {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(strings.ToLower(c.Company), search) {
			continue
		}
		matched = append(matched, *m.attachCustomer(c))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end := page(len(matched), filter.Page)
	return matched[start:end], int64(len(matched)), nil
}

func (m *MemoryStore) AddCustomerNote(ctx context.Context, note *models.CustomerNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[note.CustomerID]; !ok {
		return store.ErrNotFound
	}
	stamp(&note.ID, &note.CreatedAt, nil)
	row := *note
	row.CreatedBy = nil
	m.notes[note.CustomerID] = append(m.notes[note.CustomerID], row)
	return nil
}

func (m *MemoryStore) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.customers, id)
	delete(m.notes, id)
	return nil
}

func (m *MemoryStore) VerifyCustomerOTP(ctx context.Context, id uuid.UUID, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok || c.IsVerified || !tokenValid(c.OTPCode, c.OTPExpiresAt, code, now) {
		return false, nil
	}
	c.IsVerified = true
	c.OTPCode = nil
	c.OTPExpiresAt = nil
	m.customers[id] = c
	return true, nil
}

func (m *MemoryStore) ResetCustomerPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.customers {
		if tokenValid(c.ResetPasswordToken, c.ResetPasswordExpires, token, now) {
			c.Password = passwordHash
			c.ResetPasswordToken = nil
			c.ResetPasswordExpires = nil
			m.customers[id] = c
			return true, nil
		}
	}
	return false, nil
}

// Meetings

func (m *MemoryStore) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&meeting.ID, &meeting.CreatedAt, &meeting.UpdatedAt)
	row := *meeting
	row.Customer = nil
	row.Host = nil
	m.meetings[meeting.ID] = row
	return nil
}

func (m *MemoryStore) attachMeeting(mt models.Meeting) *models.Meeting {
	if c, ok := m.customers[mt.CustomerID]; ok {
		mt.Customer = &c
	}
	if u, ok := m.users[mt.HostID]; ok {
		mt.Host = &u
	}
	return &mt
}

func (m *MemoryStore) GetMeetingByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.meetings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.attachMeeting(mt), nil
}

func (m *MemoryStore) UpdateMeetingStatus(ctx context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.meetings[id]
	if !ok {
		return store.ErrNotFound
	}
	mt.Status = status
	mt.UpdatedAt = time.Now().UTC()
	m.meetings[id] = mt
	return nil
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func (m *MemoryStore) ListMeetings(ctx context.Context, filter store.MeetingFilter) ([]models.Meeting, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Meeting
	for _, mt := range m.meetings {
		if filter.Status != "" && mt.Status != filter.Status {
			continue
		}
		if filter.HostID != nil && mt.HostID != *filter.HostID {
			continue
		}
		if !inRange(mt.StartTime, filter.From, filter.To) {
			continue
		}
		matched = append(matched, *m.attachMeeting(mt))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	start, end := page(len(matched), filter.Page)
	return matched[start:end], int64(len(matched)), nil
}

func (m *MemoryStore) SetMeetingOrder(ctx context.Context, id uuid.UUID, prevOrderID, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.meetings[id]
	if !ok || mt.RazorpayOrderID != prevOrderID || mt.PaymentStatus == models.PaymentStatusPaid {
		return false, nil
	}
	mt.RazorpayOrderID = orderID
	mt.PaymentStatus = models.PaymentStatusPending
	m.meetings[id] = mt
	return true, nil
}

func (m *MemoryStore) MarkMeetingPaid(ctx context.Context, id uuid.UUID, orderID, paymentID, signature string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.meetings[id]
	if !ok || mt.RazorpayOrderID != orderID || mt.PaymentStatus == models.PaymentStatusPaid {
		return false, nil
	}
	mt.PaymentStatus = models.PaymentStatusPaid
	mt.RazorpayPaymentID = paymentID
	mt.RazorpaySignature = signature
	m.meetings[id] = mt
	return true, nil
}

func (m *MemoryStore) MarkMeetingPaymentFailed(ctx context.Context, id uuid.UUID, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.meetings[id]
	if !ok || mt.RazorpayOrderID != orderID || mt.PaymentStatus == models.PaymentStatusPaid {
		return false, nil
	}
	mt.PaymentStatus = models.PaymentStatusFailed
	m.meetings[id] = mt
	return true, nil
}

func (m *MemoryStore) ListDueReminders(ctx context.Context, from, to time.Time) ([]models.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []models.Meeting
	for _, mt := range m.meetings {
		if mt.Status != models.MeetingStatusScheduled || mt.ReminderSent {
			continue
		}
		if !inRange(mt.StartTime, &from, &to) {
			continue
		}
		due = append(due, *m.attachMeeting(mt))
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].StartTime.Before(due[j].StartTime)
	})
	return due, nil
}

func (m *MemoryStore) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.meetings[id]
	if !ok || mt.ReminderSent {
		return false, nil
	}
	mt.ReminderSent = true
	m.meetings[id] = mt
	return true, nil
}

// Slots

func (m *MemoryStore) CreateSlot(ctx context.Context, slot *models.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
	row := *slot
	row.User = nil
	row.Meeting = nil
	m.slots[slot.ID] = row
	return nil
}

func (m *MemoryStore) attachSlot(s models.Slot) *models.Slot {
	if u, ok := m.users[s.UserID]; ok {
		s.User = &u
	}
	if s.MeetingID != nil {
		if mt, ok := m.meetings[*s.MeetingID]; ok {
			s.Meeting = &mt
		}
	}
	return &s
}

func (m *MemoryStore) GetSlotByID(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.attachSlot(s), nil
}

func (m *MemoryStore) ListSlots(ctx context.Context, filter store.SlotFilter) ([]models.Slot, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Slot
	for _, s := range m.slots {
		if filter.OnlyAvailable && s.IsBooked {
			continue
		}
		if filter.UserID != nil && s.UserID != *filter.UserID {
			continue
		}
		if !inRange(s.StartTime, filter.From, filter.To) {
			continue
		}
		matched = append(matched, *m.attachSlot(s))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	start, end := page(len(matched), filter.Page)
	return matched[start:end], int64(len(matched)), nil
}

func (m *MemoryStore) BookSlot(ctx context.Context, slotID, meetingID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[slotID]
	if !ok || s.IsBooked {
		return false, nil
	}
	s.IsBooked = true
	s.MeetingID = &meetingID
	s.UpdatedAt = time.Now().UTC()
	m.slots[slotID] = s
	return true, nil
}
