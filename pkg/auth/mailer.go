package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

const brevoSendURL = "https://api.brevo.com/v3/sendEmail"

// Mailer delivers transactional emails
type Mailer interface {
	SendOTP(ctx context.Context, to string, code string, purpose OTPPurpose) error
}

// BrevoMailer sends emails through the Brevo transactional API
type BrevoMailer struct {
	apiKey    string
	fromEmail string
	fromName  string
	endpoint  string
	client    *http.Client
}

// NewBrevoMailer creates a BrevoMailer
func NewBrevoMailer(apiKey, fromEmail, fromName string) *BrevoMailer {
	return &BrevoMailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		endpoint:  brevoSendURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent"`
}

// SendOTP emails a one-time password
func (m *BrevoMailer) SendOTP(ctx context.Context, to string, code string, purpose OTPPurpose) error {
	subject := "Your PatentDesk verification code"
	if purpose == OTPPurposeLogin {
		subject = "Your PatentDesk login code"
	}

	email := brevoEmail{
		Sender:  brevoAddress{Name: m.fromName, Email: m.fromEmail},
		To:      []brevoAddress{{Email: to}},
		Subject: subject,
		HTMLContent: fmt.Sprintf(`<p>Your verification code is:</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:4px">%s</p>
<p>The code expires in 5 minutes. If you did not request it, ignore this email.</p>`, code),
		TextContent: fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code),
	}
	return m.send(ctx, email)
}

func (m *BrevoMailer) send(ctx context.Context, email brevoEmail) error {
	body, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer writes OTPs to the log. Used when no mail provider is configured.
type LogMailer struct {
	logger *observability.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *observability.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendOTP logs the code
func (m *LogMailer) SendOTP(ctx context.Context, to string, code string, purpose OTPPurpose) error {
	m.logger.WithFields(map[string]interface{}{
		"to":      maskEmail(to),
		"purpose": string(purpose),
		"code":    code,
	}).Info("otp email (log mailer)")
	return nil
}
