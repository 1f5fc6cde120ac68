package model

// Teaser is the ungated projection of a scan.
type Teaser struct {
	TopIssue           string `json:"topIssue"`
	IssueCount         int    `json:"issueCount"`
	AccessibilityScore *int   `json:"accessibilityScore,omitempty"`
}

// NewTeaser derives the teaser from a finding list and overall summary.
func NewTeaser(findings []Finding, summary Summary) Teaser {
	return Teaser{
		TopIssue:           TopIssue(findings),
		IssueCount:         DistinctRules(findings),
		AccessibilityScore: summary.AccessibilityScore,
	}
}

// ScanResponse is the JSON shape returned by a scan request.
type ScanResponse struct {
	Success        bool             `json:"success"`
	SessionID      string           `json:"sessionId"`
	Summary        Summary          `json:"summary"`
	Teaser         Teaser           `json:"teaser"`
	PagesScanned   int              `json:"pagesScanned,omitempty"`
	PageResults    []PageResult     `json:"pageResults,omitempty"`
	PdfResults     []PdfCheckResult `json:"pdfResults,omitempty"`
	VendorWarnings []VendorWarning  `json:"vendorWarnings,omitempty"`
	Cached         bool             `json:"cached,omitempty"`
}

// UnlockResponse is the JSON shape returned when a report is unlocked.
type UnlockResponse struct {
	Success        bool             `json:"success"`
	Findings       []Finding        `json:"findings"`
	Summary        Summary          `json:"summary"`
	WebsiteURL     string           `json:"websiteUrl"`
	PageResults    []PageResult     `json:"pageResults,omitempty"`
	PdfResults     []PdfCheckResult `json:"pdfResults,omitempty"`
	VendorWarnings []VendorWarning  `json:"vendorWarnings,omitempty"`
	ReportSent     bool             `json:"reportSent"`
}

// WaitlistResponse is the JSON shape returned for a waitlist sign-up.
type WaitlistResponse struct {
	Success     bool   `json:"success"`
	Email       string `json:"email"`
	WelcomeSent bool   `json:"welcomeSent"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
