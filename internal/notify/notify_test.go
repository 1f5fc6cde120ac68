package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/comply-scanner/internal/model"
)

func TestResendMailer_Send(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"49a3999c"}`))
	}))
	defer srv.Close()

	m := NewResendMailer(srv.URL, "re_test", "Comply <hello@getcomply.tech>")
	err := m.Send(context.Background(), Email{
		To:          "owner@clinic.com",
		Subject:     "Accessibility Report",
		HTML:        "<p>hi</p>",
		Attachments: []Attachment{{Filename: "report.pdf", Content: []byte("%PDF-1.3")}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, []string{"owner@clinic.com"}, got.To)
	assert.Equal(t, "Comply <hello@getcomply.tech>", got.From)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.3")), got.Attachments[0].Content)
}

func TestResendMailer_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	err := NewResendMailer(srv.URL, "re_test", "x").Send(context.Background(), Email{To: "a@b.co"})
	require.ErrorIs(t, err, errRejected)
	assert.Contains(t, err.Error(), "invalid from")

	err = NewResendMailer(srv.URL, "", "x").Send(context.Background(), Email{To: "a@b.co"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSlackNotifier(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		text = body["text"]
	}))
	defer srv.Close()

	rec := &model.ScanRecord{WebsiteURL: "https://example.com", PagesScanned: 3,
		Summary: model.Summary{Total: 3, Critical: 1, High: 2}.WithScore(45)}

	require.NoError(t, NewSlackNotifier(srv.URL).ReportUnlocked(context.Background(), "a@b.co", rec))
	assert.Contains(t, text, "HOT LEAD")
	assert.Contains(t, text, "*Score:* 45/100")
	assert.Contains(t, text, "*Pages:* 3")

	require.NoError(t, NewSlackNotifier("").ReportUnlocked(context.Background(), "a@b.co", rec))
}

func TestUnlockMessage_NotHot(t *testing.T) {
	rec := &model.ScanRecord{WebsiteURL: "https://example.com", Summary: model.Summary{}.WithScore(60)}

	msg := UnlockMessage("a@b.co", rec)

	assert.Contains(t, msg, "New scan report unlocked!")
	assert.Contains(t, msg, "*Pages:* 1")
}

func TestSlackNotifier_WaitlistJoined(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		text = body["text"]
	}))
	defer srv.Close()

	require.NoError(t, NewSlackNotifier(srv.URL).WaitlistJoined(context.Background(), "owner@clinic.com"))
	assert.Contains(t, text, "New waitlist sign-up!")
	assert.Contains(t, text, "`owner@clinic.com`")

	require.NoError(t, NewSlackNotifier("").WaitlistJoined(context.Background(), "owner@clinic.com"))
}

func TestSlackNotifier_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL).WaitlistJoined(context.Background(), "owner@clinic.com")
	require.ErrorIs(t, err, errRejected)
}
