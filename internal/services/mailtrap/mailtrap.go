// Package mailtrap sends transactional email through the Mailtrap send API.
package mailtrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

var ErrNotConfigured = errors.New("mailtrap: api key or url not configured")

type Config struct {
	APIKey   string
	URL      string
	From     string
	FromName string
}

type MailtrapService struct {
	cfg    Config
	client *http.Client
}

func NewMailtrapService(cfg Config) *MailtrapService {
	if cfg.FromName == "" {
		cfg.FromName = "Finance Tracker"
	}
	return &MailtrapService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// EmailRecipient represents an email recipient
type EmailRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// EmailRequest represents the request payload for sending an email
type EmailRequest struct {
	From     EmailRecipient   `json:"from"`
	To       []EmailRecipient `json:"to"`
	Subject  string           `json:"subject"`
	HTML     string           `json:"html,omitempty"`
	Text     string           `json:"text,omitempty"`
	Category string           `json:"category,omitempty"`
}

var resetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Reset your password</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>Reset your password</h2>
		<p>Hello {{.Name}},</p>
		<p>Someone asked to reset the password of your finance tracker account. Use the link below to choose a new one:</p>
		<p style="margin: 30px 0;">
			<a href="{{.URL}}" style="background-color: #0a7d5a; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;">Choose a new password</a>
		</p>
		<p style="word-break: break-all; color: #0a7d5a;">{{.URL}}</p>
		<p>The link expires in {{.Minutes}} minutes. If you did not ask for this, ignore this email.</p>
	</div>
</body>
</html>
`))

type resetData struct {
	Name    string
	URL     string
	Minutes int
}

// SendPasswordReset mails a password reset link that stays valid for ttl.
func (m *MailtrapService) SendPasswordReset(ctx context.Context, toEmail, toName, resetURL string, ttl time.Duration) error {
	minutes := int(ttl.Minutes())

	var html bytes.Buffer
	if err := resetHTML.Execute(&html, resetData{Name: toName, URL: resetURL, Minutes: minutes}); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}
	htmlBody := html.String()

	textBody := fmt.Sprintf(`
Reset your password

Hello %s,

Someone asked to reset the password of your finance tracker account. Open this link to choose a new one:

%s

The link expires in %d minutes. If you did not ask for this, ignore this email.
	`, toName, resetURL, minutes)

	return m.sendEmail(ctx, EmailRequest{
		From: EmailRecipient{
			Email: m.cfg.From,
			Name:  m.cfg.FromName,
		},
		To: []EmailRecipient{
			{
				Email: toEmail,
				Name:  toName,
			},
		},
		Subject:  "Reset your password",
		HTML:     htmlBody,
		Text:     textBody,
		Category: "password_reset",
	})
}

// sendEmail sends an email via the Mailtrap API
func (m *MailtrapService) sendEmail(ctx context.Context, emailReq EmailRequest) error {
	if m.cfg.APIKey == "" || m.cfg.URL == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(emailReq)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("mailtrap API returned status: %d", resp.StatusCode)
	}

	return nil
}
