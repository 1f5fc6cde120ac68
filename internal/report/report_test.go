package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bahjat/comply-scanner/internal/model"
)

func sampleRecord() *model.ScanRecord {
	findings := []model.Finding{
		{
			ID: "image-alt", Check: "Image Alt Text", Severity: model.SeverityHigh,
			Message: "2 image(s) missing alt text", Count: 2,
			WCAGCriterion: "1.1.1", WCAGName: "Non-text Content", WCAGLevel: model.LevelA,
			Impact: "Blind visitors hear nothing.", Remediation: "Add alt text.",
			ManagerGuidance: "Ask your editor.", DeveloperGuidance: "Add alt attributes.",
			Elements: []string{`<img src="<script>">`},
		},
		{ID: "html-has-lang", Check: "Language Attribute", Severity: model.SeverityMedium, Message: "Missing language attribute on HTML element"},
	}
	summary := model.Summarize(findings).WithScore(64)
	return &model.ScanRecord{
		SessionID:    "s-1",
		WebsiteURL:   "https://clinic.example.com",
		Findings:     findings,
		Summary:      summary,
		PageResults:  []model.PageResult{model.NewPageResult("https://clinic.example.com", "Café Clinic", 64, findings)},
		PagesScanned: 1,
		PdfResults: []model.PdfCheckResult{
			{Filename: "intake.pdf", HasTitle: true},
			{Filename: "slow.pdf", Error: "timeout"},
		},
		VendorWarnings: []model.VendorWarning{{Vendor: "Zocdoc", Category: "Online Scheduling", DetectedVia: "script include",
			Warning: "Your site embeds Zocdoc.", Action: "Request a VPAT.", VPATTemplateEmail: "Hello Zocdoc team"}},
		OverallScore: 64,
	}
}

func TestSubject(t *testing.T) {
	rec := sampleRecord()
	assert.Equal(t, "Accessibility Report: Score 64/100 - 2 issues on https://clinic.example.com", Subject(rec))

	rec.Summary = model.Summarize(rec.Findings[:1]).WithScore(90)
	assert.Equal(t, "Accessibility Report: Score 90/100 - 1 issue on https://clinic.example.com", Subject(rec))
}

func TestWelcomeHTML(t *testing.T) {
	html, err := WelcomeHTML("<owner>@clinic.com")

	require.NoError(t, err)
	assert.Contains(t, html, "You're on the list!")
	assert.Contains(t, html, "&lt;owner&gt;@clinic.com")
	assert.NotContains(t, html, "<owner>")
}

func TestEmailHTML(t *testing.T) {
	body, err := EmailHTML(sampleRecord())

	require.NoError(t, err)
	assert.Contains(t, body, "Café Clinic")
	assert.Contains(t, body, "WCAG 1.1.1 (A)")
	assert.Contains(t, body, "HIGH")
	assert.Contains(t, body, "For practice managers:")
	assert.Contains(t, body, "intake.pdf")
	assert.Contains(t, body, "unknown")
	assert.Contains(t, body, "Third-Party Vendor Risk")
	assert.Contains(t, body, "Hello Zocdoc team")
	assert.NotContains(t, body, `<img src="<script>">`, "element snippets are escaped")
	assert.Contains(t, body, "&lt;img src=")
}

func TestEmailHTML_FallsBackToFindings(t *testing.T) {
	rec := sampleRecord()
	rec.PageResults = nil

	body, err := EmailHTML(rec)

	require.NoError(t, err)
	assert.Contains(t, body, "Image Alt Text")
}

func TestPDFGenerator_Generate(t *testing.T) {
	g := NewPDFGenerator()
	g.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	out, err := g.Generate(sampleRecord())

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}

func TestPDFGenerator_EmptyRecord(t *testing.T) {
	out, err := NewPDFGenerator().Generate(&model.ScanRecord{WebsiteURL: "https://example.com"})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestBadge(t *testing.T) {
	scanned := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		score     *int
		wantColor string
		wantText  string
	}{
		{name: "green", score: intPtr(95), wantColor: "#16a34a", wantText: ">95<"},
		{name: "yellow", score: intPtr(70), wantColor: "#ca8a04", wantText: ">70<"},
		{name: "red", score: intPtr(42), wantColor: "#dc2626", wantText: ">42<"},
		{name: "unknown", wantColor: badgeGrey, wantText: ">?<"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svg := string(Badge(tt.score, &scanned))
			assert.True(t, strings.HasPrefix(svg, "<svg"))
			assert.Contains(t, svg, tt.wantColor)
			assert.Contains(t, svg, tt.wantText)
			assert.Contains(t, svg, "Mar 4, 2026")
		})
	}

	assert.Contains(t, string(Badge(nil, nil)), "Not scanned")
}

func TestErrorBadge(t *testing.T) {
	svg := string(ErrorBadge("Badge <not> found"))
	assert.Contains(t, svg, "Badge &lt;not&gt; found")
}

func intPtr(v int) *int { return &v }
