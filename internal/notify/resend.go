// Package notify delivers unlocked reports by email and announces unlocks to
// the sales channel.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultResendBase is the Resend API host.
	DefaultResendBase = "https://api.resend.com"
	requestTimeout    = 10 * time.Second
)

var (
	// ErrNotConfigured is returned when a notifier has no credentials.
	ErrNotConfigured = errors.New("notifier not configured")
	errRejected      = errors.New("delivery rejected")
)

// Attachment is a file sent with an email.
type Attachment struct {
	Filename string
	Content  []byte
}

// Email is an outbound message.
type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends emails.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// ResendMailer sends email through the Resend HTTP API.
type ResendMailer struct {
	client  *http.Client
	baseURL string
	apiKey  string
	from    string
}

// NewResendMailer returns a mailer. An empty apiKey yields a mailer whose
// Send always returns ErrNotConfigured.
func NewResendMailer(baseURL, apiKey, from string) *ResendMailer {
	if baseURL == "" {
		baseURL = DefaultResendBase
	}
	return &ResendMailer{
		client:  &http.Client{Timeout: requestTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
	}
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

// Send posts msg to the Resend emails endpoint.
func (m *ResendMailer) Send(ctx context.Context, msg Email) error {
	if m.apiKey == "" {
		return ErrNotConfigured
	}

	payload := resendRequest{From: m.from, To: []string{msg.To}, Subject: msg.Subject, HTML: msg.HTML}
	for _, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("resend: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("resend: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend: %w: status %d: %s", errRejected, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
