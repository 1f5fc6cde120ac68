package model

import "time"

// PageResult is the audit outcome for one page of a scan.
type PageResult struct {
	PageURL            string    `json:"pageUrl"`
	PageTitle          string    `json:"pageTitle,omitempty"`
	AccessibilityScore int       `json:"accessibilityScore"`
	Findings           []Finding `json:"findings"`
	Summary            Summary   `json:"summary"`
}

// NewPageResult builds a PageResult whose summary is derived from findings.
func NewPageResult(pageURL, title string, score int, findings []Finding) PageResult {
	score = ClampScore(score)
	if findings == nil {
		findings = []Finding{}
	}
	return PageResult{
		PageURL:            pageURL,
		PageTitle:          title,
		AccessibilityScore: score,
		Findings:           findings,
		Summary:            Summarize(findings).WithScore(score),
	}
}

// PdfCheckResult records the structural inspection of one linked PDF.
type PdfCheckResult struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	IsAccessible bool   `json:"isAccessible"`
	HasLangTag   bool   `json:"hasLangTag"`
	HasMarkInfo  bool   `json:"hasMarkInfo"`
	HasTitle     bool   `json:"hasTitle"`
	Error        string `json:"error,omitempty"`
}

// VendorWarning is a liability notice for a detected third-party service.
type VendorWarning struct {
	Vendor            string `json:"vendor"`
	Category          string `json:"category"`
	DetectedVia       string `json:"detectedVia"`
	Warning           string `json:"warning"`
	Action            string `json:"action"`
	VPATTemplateEmail string `json:"vpatTemplateEmail"`
}

// ScanRecord is the persisted outcome of one scan invocation.
type ScanRecord struct {
	ID              string
	SessionID       string
	WebsiteURL      string
	ClientID        string
	HTTPStatus      int
	ScanDuration    time.Duration
	Findings        []Finding
	Summary         Summary
	PageResults     []PageResult
	PagesScanned    int
	PdfResults      []PdfCheckResult
	VendorWarnings  []VendorWarning
	OverallScore    int
	UserID          string
	Email           string
	CreatedAt       time.Time
	EmailCapturedAt *time.Time
	ReportSentAt    *time.Time
}

// Failed reports whether the record is a failed-attempt placeholder.
func (r *ScanRecord) Failed() bool {
	return r.HTTPStatus == 0
}

// RecordUpdate lists the fields an unlock may attach to a stored record.
// Nil fields are left untouched.
type RecordUpdate struct {
	Email           *string
	EmailCapturedAt *time.Time
	ReportSentAt    *time.Time
}
