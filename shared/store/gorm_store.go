package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/utils/query"
)

const uniqueViolation = "23505"

// GormStore implements Store on top of gorm/postgres
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translateError maps driver errors onto the package's sentinel errors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &DuplicateError{Field: fieldFromConstraint(pgErr.TableName, pgErr.ConstraintName), Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DuplicateError{Err: err}
	}
	return err
}

// fieldFromConstraint recovers the column from gorm ("idx_users_email") or
// postgres ("users_email_key") unique index names
func fieldFromConstraint(table, constraint string) string {
	name := strings.TrimPrefix(constraint, "idx_")
	name = strings.TrimSuffix(name, "_key")
	if table != "" {
		name = strings.TrimPrefix(name, table+"_")
	} else if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func paginate(q *gorm.DB, page Page) *gorm.DB {
	if page.Limit <= 0 {
		return q
	}
	return q.Offset(page.Offset).Limit(page.Limit)
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translateError(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	return translateError(s.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error)
}

func (s *GormStore) TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return translateError(s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", at).Error)
}

func (s *GormStore) SetUserResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_password_token":   token,
			"reset_password_expires": expires,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ResetUserPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("reset_password_token = ? AND reset_password_expires > ?", token, now).
		Updates(map[string]interface{}{
			"password":               passwordHash,
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Customers

func (s *GormStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return translateError(s.db.WithContext(ctx).Omit("AssignedTo", "Notes").Create(customer).Error)
}

func (s *GormStore) GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).
		Preload("AssignedTo").
		Preload("Notes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Notes.CreatedBy").
		First(&customer, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

func (s *GormStore) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&customer).Error; err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

func (s *GormStore) UpdateCustomer(ctx context.Context, id uuid.UUID, changes CustomerChanges) error {
	columns := map[string]interface{}{}
	if changes.Name != nil {
		columns["name"] = *changes.Name
	}
	if changes.Email != nil {
		columns["email"] = *changes.Email
	}
	if changes.Phone != nil {
		columns["phone"] = *changes.Phone
	}
	if changes.Company != nil {
		columns["company"] = *changes.Company
	}
	if changes.Status != nil {
		columns["status"] = *changes.Status
	}
	if changes.AssignedToID != nil {
		columns["assigned_to_id"] = *changes.AssignedToID
	}
	if len(columns) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetCustomerOTP(ctx context.Context, id uuid.UUID, code string, expires time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]interface{}{
			"otp_code":       code,
			"otp_expires_at": expires,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) SetCustomerResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_password_token":   token,
			"reset_password_expires": expires,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListCustomers(ctx context.Context, filter CustomerFilter) ([]models.Customer, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Customer{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = query.ApplySearch(q, filter.Search, []string{"name", "email", "company"})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	var customers []models.Customer
	err := paginate(q.Preload("AssignedTo").Order("created_at DESC"), filter.Page).Find(&customers).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

func (s *GormStore) AddCustomerNote(ctx context.Context, note *models.CustomerNote) error {
	res := s.db.WithContext(ctx).Omit("CreatedBy").Create(note)
	return translateError(res.Error)
}

func (s *GormStore) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) VerifyCustomerOTP(ctx context.Context, id uuid.UUID, code string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND is_verified = ? AND otp_code = ? AND otp_expires_at > ?", id, false, code, now).
		Updates(map[string]interface{}{
			"is_verified":    true,
			"otp_code":       nil,
			"otp_expires_at": nil,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ResetCustomerPassword(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("reset_password_token = ? AND reset_password_expires > ?", token, now).
		Updates(map[string]interface{}{
			"password":               passwordHash,
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Meetings

func (s *GormStore) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	return translateError(s.db.WithContext(ctx).Omit("Customer", "Host").Create(meeting).Error)
}

func (s *GormStore) GetMeetingByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	var meeting models.Meeting
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Host").
		First(&meeting, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &meeting, nil
}

func (s *GormStore) UpdateMeetingStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListMeetings(ctx context.Context, filter MeetingFilter) ([]models.Meeting, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Meeting{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.HostID != nil {
		q = q.Where("host_id = ?", *filter.HostID)
	}
	if filter.From != nil {
		q = q.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("start_time <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count meetings: %w", err)
	}

	var meetings []models.Meeting
	err := paginate(q.Preload("Customer").Preload("Host").Order("start_time ASC"), filter.Page).Find(&meetings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, total, nil
}

func (s *GormStore) SetMeetingOrder(ctx context.Context, id uuid.UUID, prevOrderID, orderID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND razorpay_order_id = ? AND payment_status <> ?", id, prevOrderID, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"razorpay_order_id": orderID,
			"payment_status":    models.PaymentStatusPending,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) MarkMeetingPaid(ctx context.Context, id uuid.UUID, orderID, paymentID, signature string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND razorpay_order_id = ? AND payment_status <> ?", id, orderID, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status":      models.PaymentStatusPaid,
			"razorpay_payment_id": paymentID,
			"razorpay_signature":  signature,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) MarkMeetingPaymentFailed(ctx context.Context, id uuid.UUID, orderID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND razorpay_order_id = ? AND payment_status <> ?", id, orderID, models.PaymentStatusPaid).
		Update("payment_status", models.PaymentStatusFailed)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ListDueReminders(ctx context.Context, from, to time.Time) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Host").
		Where("status = ? AND reminder_sent = ? AND start_time >= ? AND start_time <= ?",
			models.MeetingStatusScheduled, false, from, to).
		Order("start_time ASC").
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return meetings, nil
}

func (s *GormStore) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Slots

func (s *GormStore) CreateSlot(ctx context.Context, slot *models.Slot) error {
	return translateError(s.db.WithContext(ctx).Omit("User", "Meeting").Create(slot).Error)
}

func (s *GormStore) GetSlotByID(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Meeting").
		First(&slot, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &slot, nil
}

func (s *GormStore) ListSlots(ctx context.Context, filter SlotFilter) ([]models.Slot, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Slot{})
	if filter.OnlyAvailable {
		q = q.Where("is_booked = ?", false)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		q = q.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("start_time <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count slots: %w", err)
	}

	var slots []models.Slot
	err := paginate(q.Preload("User").Preload("Meeting").Order("start_time ASC"), filter.Page).Find(&slots).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list slots: %w", err)
	}
	return slots, total, nil
}

func (s *GormStore) BookSlot(ctx context.Context, slotID, meetingID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id = ? AND is_booked = ?", slotID, false).
		Updates(map[string]interface{}{
			"is_booked":  true,
			"meeting_id": meetingID,
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}
