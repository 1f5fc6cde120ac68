// Package report renders unlocked scan reports: the HTML email, its PDF
// attachment and the embeddable score badge.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Bahjat/comply-scanner/internal/model"
)

//go:embed email.html.tmpl
var emailSource string

//go:embed welcome.html.tmpl
var welcomeSource string

// WelcomeSubject is the subject line of the waitlist welcome email.
const WelcomeSubject = "Welcome to the Comply waitlist!"

var severityColors = map[model.Severity]string{
	model.SeverityCritical: "#dc2626",
	model.SeverityHigh:     "#ea580c",
	model.SeverityMedium:   "#ca8a04",
	model.SeverityLow:      "#2563eb",
}

var levelColors = map[model.WCAGLevel]string{
	model.LevelA:   "#16a34a",
	model.LevelAA:  "#2563eb",
	model.LevelAAA: "#7c3aed",
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"severityColor": func(s model.Severity) string { return severityColors[s] },
	"levelColor":    func(l model.WCAGLevel) string { return levelColors[l] },
	"upper":         func(s model.Severity) string { return strings.ToUpper(string(s)) },
	"scoreColor":    scoreColor,
}).Parse(emailSource))

var welcomeTemplate = template.Must(template.New("welcome").Parse(welcomeSource))

type emailData struct {
	WebsiteURL     string
	Score          int
	Summary        model.Summary
	Pages          []model.PageResult
	PdfResults     []model.PdfCheckResult
	VendorWarnings []model.VendorWarning
	PagesScanned   int
}

// Subject returns the email subject line for a report.
func Subject(rec *model.ScanRecord) string {
	return fmt.Sprintf("Accessibility Report: Score %d/100 - %s on %s",
		rec.Summary.Score(), issueText(rec.Summary.Total), rec.WebsiteURL)
}

// EmailHTML renders the report email body.
func EmailHTML(rec *model.ScanRecord) (string, error) {
	pages := rec.PageResults
	if len(pages) == 0 && len(rec.Findings) > 0 {
		pages = []model.PageResult{model.NewPageResult(rec.WebsiteURL, "", rec.Summary.Score(), rec.Findings)}
	}

	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailData{
		WebsiteURL:     rec.WebsiteURL,
		Score:          rec.Summary.Score(),
		Summary:        rec.Summary,
		Pages:          pages,
		PdfResults:     rec.PdfResults,
		VendorWarnings: rec.VendorWarnings,
		PagesScanned:   max(rec.PagesScanned, 1),
	})
	if err != nil {
		return "", fmt.Errorf("rendering report email: %w", err)
	}
	return buf.String(), nil
}

// WelcomeHTML renders the waitlist welcome email body for email.
func WelcomeHTML(email string) (string, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, struct{ Email string }{email}); err != nil {
		return "", fmt.Errorf("rendering welcome email: %w", err)
	}
	return buf.String(), nil
}

func issueText(n int) string {
	if n == 1 {
		return "1 issue"
	}
	return fmt.Sprintf("%d issues", n)
}

// scoreColor matches the badge thresholds.
func scoreColor(score int) string {
	switch {
	case score >= 90:
		return "#16a34a"
	case score >= 70:
		return "#ca8a04"
	default:
		return "#dc2626"
	}
}
