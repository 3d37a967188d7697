package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"meetdesk-backend/shared/database/models"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestNotifier(t *testing.T, mailer Mailer) *Notifier {
	t.Helper()
	templates, err := NewTemplateService("MeetDesk")
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	return NewNotifier(mailer, templates, "https://app.example.com/", 15*time.Minute, nil)
}

func TestEveryTemplateRenders(t *testing.T) {
	templates, err := NewTemplateService("MeetDesk")
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}

	ids := []string{
		TemplateCustomerOTP,
		TemplateCustomerWelcome,
		TemplateUserWelcome,
		TemplatePasswordReset,
		TemplateMeetingConfirmation,
		TemplateMeetingReminder,
		TemplateMeetingCancelled,
		TemplateCustomerAssigned,
		TemplateCustomerReassigned,
	}
	for _, id := range ids {
		body, err := templates.RenderTemplate(id, "Subject", map[string]interface{}{"Name": "Ada"})
		if err != nil {
			t.Fatalf("template %s: %v", id, err)
		}
		if !strings.Contains(body, "The MeetDesk Team") {
			t.Fatalf("template %s: expected layout footer", id)
		}
	}
}

func TestSendCustomerOTP(t *testing.T) {
	mailer := &recordingMailer{}
	n := newTestNotifier(t, mailer)

	customer := &models.Customer{Name: "Ada", Email: "ada@example.com"}
	if err := n.SendCustomerOTP(context.Background(), customer, "042137"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To[0] != "ada@example.com" || msg.Subject != "Your OTP Code" || !msg.IsHTML {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.Body, "042137") || !strings.Contains(msg.Body, "10 minutes") {
		t.Fatalf("expected code and validity in body")
	}
}

func TestPasswordResetLinks(t *testing.T) {
	mailer := &recordingMailer{}
	n := newTestNotifier(t, mailer)
	ctx := context.Background()

	n.SendUserPasswordReset(ctx, &models.User{FirstName: "A", LastName: "B", Email: "a@x.com"}, "tok123")
	n.SendCustomerPasswordReset(ctx, &models.Customer{Name: "C", Email: "c@x.com"}, "tok456")

	if !strings.Contains(mailer.sent[0].Body, "https://app.example.com/reset-password?token=tok123") {
		t.Fatalf("expected staff reset link, got %s", mailer.sent[0].Body)
	}
	if !strings.Contains(mailer.sent[1].Body, "https://app.example.com/customer-reset-password?token=tok456") {
		t.Fatalf("expected customer reset link, got %s", mailer.sent[1].Body)
	}
}

func TestMeetingEmailsUseRecipientTimezone(t *testing.T) {
	mailer := &recordingMailer{}
	n := newTestNotifier(t, mailer)

	meeting := &models.Meeting{
		ID:          uuid.New(),
		Title:       "Quarterly review",
		StartTime:   time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC),
		Duration:    45,
		ZoomJoinURL: "https://zoom.us/j/9",
	}
	host := &models.User{FirstName: "H", LastName: "Ost", Email: "h@x.com", Preferences: models.UserPreferences{Timezone: "Asia/Kolkata"}}

	if err := n.SendMeetingConfirmation(context.Background(), meeting, UserRecipient(host)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := mailer.sent[0]
	if msg.Subject != "Meeting Confirmation: Quarterly review" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "14:30 IST") || !strings.Contains(msg.Body, "https://zoom.us/j/9") {
		t.Fatalf("expected local time and join url in body: %s", msg.Body)
	}
}

func TestNotifierReturnsMailerError(t *testing.T) {
	n := newTestNotifier(t, &recordingMailer{err: errors.New("smtp down")})
	err := n.SendCustomerWelcome(context.Background(), &models.Customer{Name: "A", Email: "a@x.com"})
	if err == nil {
		t.Fatalf("expected mailer error to surface")
	}
}
