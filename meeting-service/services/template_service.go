package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateCustomerOTP         = "customer_otp"
	TemplateCustomerWelcome     = "customer_welcome"
	TemplateUserWelcome         = "user_welcome"
	TemplatePasswordReset       = "password_reset"
	TemplateMeetingConfirmation = "meeting_confirmation"
	TemplateMeetingReminder     = "meeting_reminder"
	TemplateMeetingCancelled    = "meeting_cancelled"
	TemplateCustomerAssigned    = "customer_assigned"
	TemplateCustomerReassigned  = "customer_reassigned"
)

// TemplateService renders the embedded HTML email templates
type TemplateService struct {
	templates *template.Template
	appName   string
}

// NewTemplateService parses every embedded template once
func NewTemplateService(appName string) (*TemplateService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &TemplateService{templates: tmpl, appName: appName}, nil
}

// RenderTemplate renders templateID with data. Subject and AppName are always available to the layout.
func (ts *TemplateService) RenderTemplate(templateID, subject string, data map[string]interface{}) (string, error) {
	vars := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		vars[k] = v
	}
	vars["Subject"] = subject
	vars["AppName"] = ts.appName

	var rendered bytes.Buffer
	if err := ts.templates.ExecuteTemplate(&rendered, templateID+".html", vars); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", templateID, err)
	}
	return rendered.String(), nil
}
