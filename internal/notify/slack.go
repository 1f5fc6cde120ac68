package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Bahjat/comply-scanner/internal/model"
)

// HotLeadThreshold marks unlocks of sites scoring below it.
const HotLeadThreshold = 60

// Notifier announces unlocked reports and waitlist sign-ups.
type Notifier interface {
	ReportUnlocked(ctx context.Context, email string, rec *model.ScanRecord) error
	WaitlistJoined(ctx context.Context, email string) error
}

// SlackNotifier posts to a Slack incoming webhook.
type SlackNotifier struct {
	client     *http.Client
	webhookURL string
}

// NewSlackNotifier returns a notifier. An empty webhookURL yields a notifier
// that does nothing.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{client: &http.Client{Timeout: requestTimeout}, webhookURL: webhookURL}
}

// UnlockMessage formats the Slack text for an unlocked report.
func UnlockMessage(email string, rec *model.ScanRecord) string {
	score := rec.Summary.Score()
	header := "New scan report unlocked!"
	if score < HotLeadThreshold {
		header = "HOT LEAD: high potential client!"
	}
	s := rec.Summary
	return fmt.Sprintf("%s\n*Email:* %s\n*Website:* %s\n*Score:* %d/100\n*Pages:* %d\n*Issues:* %d critical, %d high, %d medium, %d low",
		header, email, rec.WebsiteURL, score, max(rec.PagesScanned, 1), s.Critical, s.High, s.Medium, s.Low)
}

// WaitlistMessage formats the Slack text for a waitlist sign-up.
func WaitlistMessage(email string) string {
	return fmt.Sprintf("*New waitlist sign-up!*\n*Email:* `%s`", email)
}

// ReportUnlocked posts UnlockMessage to the webhook.
func (n *SlackNotifier) ReportUnlocked(ctx context.Context, email string, rec *model.ScanRecord) error {
	return n.post(ctx, UnlockMessage(email, rec))
}

// WaitlistJoined posts WaitlistMessage to the webhook.
func (n *SlackNotifier) WaitlistJoined(ctx context.Context, email string) error {
	return n.post(ctx, WaitlistMessage(email))
}

func (n *SlackNotifier) post(ctx context.Context, text string) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("slack: encoding message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack: %w: status %d", errRejected, resp.StatusCode)
	}
	return nil
}
