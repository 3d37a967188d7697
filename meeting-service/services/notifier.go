package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/metrics"
	utils "meetdesk-backend/shared/utils/auth"
)

const meetingTimeLayout = "Monday, 02 Jan 2006 15:04 MST"

// Recipient is who an email is addressed to. Timezone controls how meeting times are shown.
type Recipient struct {
	Name     string
	Email    string
	Timezone string
}

func UserRecipient(u *models.User) Recipient {
	return Recipient{Name: u.FullName(), Email: u.Email, Timezone: u.Preferences.Timezone}
}

func CustomerRecipient(c *models.Customer) Recipient {
	return Recipient{Name: c.Name, Email: c.Email}
}

// Notifier renders and sends every notification email the service produces
type Notifier struct {
	mailer       Mailer
	templates    *TemplateService
	frontendURL  string
	reminderLead time.Duration
	metrics      *metrics.Metrics
}

func NewNotifier(mailer Mailer, templates *TemplateService, frontendURL string, reminderLead time.Duration, m *metrics.Metrics) *Notifier {
	return &Notifier{
		mailer:       mailer,
		templates:    templates,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		reminderLead: reminderLead,
		metrics:      m,
	}
}

func (n *Notifier) send(ctx context.Context, templateID, subject string, to Recipient, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Name"] = to.Name

	body, err := n.templates.RenderTemplate(templateID, subject, data)
	if err == nil {
		err = n.mailer.Send(ctx, EmailMessage{
			To:      []string{to.Email},
			Subject: subject,
			Body:    body,
			IsHTML:  true,
		})
	}
	n.metrics.ObserveEmail(templateID, err)

	if err != nil {
		log.Printf("❌ Email sending failed (%s to %s): %v", templateID, to.Email, err)
		return err
	}
	log.Printf("📧 Email sent successfully (%s to %s)", templateID, to.Email)
	return nil
}

func formatMeetingTime(t time.Time, timezone string) string {
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	return t.In(loc).Format(meetingTimeLayout)
}

func meetingData(meeting *models.Meeting, to Recipient) map[string]interface{} {
	return map[string]interface{}{
		"Title":     meeting.Title,
		"StartTime": formatMeetingTime(meeting.StartTime, to.Timezone),
		"Duration":  meeting.Duration,
		"JoinURL":   meeting.ZoomJoinURL,
	}
}

func (n *Notifier) resetURL(path, token string) string {
	return fmt.Sprintf("%s/%s?token=%s", n.frontendURL, path, url.QueryEscape(token))
}

func (n *Notifier) SendUserWelcome(ctx context.Context, user *models.User) error {
	return n.send(ctx, TemplateUserWelcome, fmt.Sprintf("Welcome to %s", n.templates.appName), UserRecipient(user), map[string]interface{}{
		"Role":     user.Role,
		"LoginURL": n.frontendURL + "/login",
	})
}

func (n *Notifier) SendUserPasswordReset(ctx context.Context, user *models.User, token string) error {
	return n.send(ctx, TemplatePasswordReset, "Password Reset Request", UserRecipient(user), map[string]interface{}{
		"ResetURL": n.resetURL("reset-password", token),
	})
}

func (n *Notifier) SendCustomerOTP(ctx context.Context, customer *models.Customer, code string) error {
	return n.send(ctx, TemplateCustomerOTP, "Your OTP Code", CustomerRecipient(customer), map[string]interface{}{
		"Code":         code,
		"ValidMinutes": int(utils.OTPValidity / time.Minute),
	})
}

func (n *Notifier) SendCustomerWelcome(ctx context.Context, customer *models.Customer) error {
	return n.send(ctx, TemplateCustomerWelcome, fmt.Sprintf("Welcome to %s", n.templates.appName), CustomerRecipient(customer), nil)
}

func (n *Notifier) SendCustomerPasswordReset(ctx context.Context, customer *models.Customer, token string) error {
	return n.send(ctx, TemplatePasswordReset, "Password Reset Request", CustomerRecipient(customer), map[string]interface{}{
		"ResetURL": n.resetURL("customer-reset-password", token),
	})
}

func (n *Notifier) SendMeetingConfirmation(ctx context.Context, meeting *models.Meeting, to Recipient) error {
	return n.send(ctx, TemplateMeetingConfirmation, "Meeting Confirmation: "+meeting.Title, to, meetingData(meeting, to))
}

func (n *Notifier) SendMeetingReminder(ctx context.Context, meeting *models.Meeting, to Recipient) error {
	data := meetingData(meeting, to)
	data["LeadMinutes"] = int(n.reminderLead / time.Minute)
	return n.send(ctx, TemplateMeetingReminder, "Reminder: "+meeting.Title, to, data)
}

func (n *Notifier) SendMeetingCancelled(ctx context.Context, meeting *models.Meeting, to Recipient) error {
	return n.send(ctx, TemplateMeetingCancelled, "Meeting Cancelled: "+meeting.Title, to, meetingData(meeting, to))
}

func (n *Notifier) SendCustomerAssigned(ctx context.Context, customer *models.Customer, assignee *models.User) error {
	return n.send(ctx, TemplateCustomerAssigned, "New Customer Assignment", UserRecipient(assignee), map[string]interface{}{
		"CustomerName":    customer.Name,
		"CustomerEmail":   customer.Email,
		"CustomerCompany": customer.Company,
	})
}

func (n *Notifier) SendCustomerReassigned(ctx context.Context, customer *models.Customer, previous *models.User) error {
	return n.send(ctx, TemplateCustomerReassigned, "Customer Reassignment Notification", UserRecipient(previous), map[string]interface{}{
		"CustomerName":  customer.Name,
		"CustomerEmail": customer.Email,
	})
}
