// Package enrich turns raw audit results into findings carrying WCAG
// mapping, plain-language impact and role-specific remediation guidance.
package enrich

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Bahjat/comply-scanner/internal/audit"
	"github.com/Bahjat/comply-scanner/internal/model"
)

// SeverityFor buckets a raw audit score. items is the number of elements the
// audit flagged.
func SeverityFor(score float64, items int) model.Severity {
	switch {
	case score == 0 && items > 10:
		return model.SeverityCritical
	case score == 0 && items > 5:
		return model.SeverityHigh
	case score == 0:
		return model.SeverityMedium
	case score < 0.5:
		return model.SeverityHigh
	case score < 0.9:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// IsFinding reports whether an audit result represents a defect.
func IsFinding(a audit.Audit) bool {
	if a.Score == nil || *a.Score >= 1 {
		return false
	}
	switch a.ScoreDisplayMode {
	case audit.ModeNotApplicable, audit.ModeInformative, audit.ModeManual:
		return false
	}
	return true
}

// FromAudit builds the finding for one audit. ok is false when the audit
// passed or is not scored.
func FromAudit(ruleID string, a audit.Audit, pageURL string) (f model.Finding, ok bool) {
	if !IsFinding(a) {
		return model.Finding{}, false
	}

	severity := a.Severity
	if severity == "" {
		severity = SeverityFor(*a.Score, a.ItemCount())
	}

	r, _ := Lookup(ruleID)
	check := r.Check
	if check == "" {
		check = a.Title
	}

	return model.Finding{
		ID:                ruleID,
		Check:             check,
		Severity:          severity,
		Message:           a.Title,
		Details:           a.Description,
		Count:             a.ItemCount(),
		WCAGCriterion:     r.Criterion,
		WCAGName:          r.Name,
		WCAGLevel:         r.Level,
		WCAGPrinciple:     r.Principle,
		PageURL:           pageURL,
		Remediation:       r.Remediation,
		Impact:            r.Impact,
		ManagerGuidance:   r.ManagerGuidance,
		DeveloperGuidance: r.DeveloperGuidance,
		Elements:          a.Snippets(model.MaxElements),
	}, true
}

// Report enriches every failing audit in report, most severe first. Audits of
// equal severity are ordered by rule id.
func Report(report *audit.Report, pageURL string) []model.Finding {
	if report == nil {
		return nil
	}
	ids := make([]string, 0, len(report.Audits))
	for id := range report.Audits {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var findings []model.Finding
	for _, id := range ids {
		if f, ok := FromAudit(id, report.Audits[id], pageURL); ok {
			findings = append(findings, f)
		}
	}
	return model.SortBySeverity(findings)
}

// PdfFinding summarizes inaccessible PDFs. ok is false when none are.
func PdfFinding(results []model.PdfCheckResult, pageURL string) (f model.Finding, ok bool) {
	var names []string
	for _, r := range results {
		if !r.IsAccessible && r.Error == "" {
			names = append(names, r.Filename)
		}
	}
	if len(names) == 0 {
		return model.Finding{}, false
	}

	severity := model.SeverityHigh
	if len(names) >= 3 {
		severity = model.SeverityCritical
	}

	return fromRule(RulePDFInaccessible, model.Finding{
		Severity: severity,
		Message:  fmt.Sprintf("%d PDF document(s) are not accessible to screen readers", len(names)),
		Details:  "Missing language or tag structure: " + strings.Join(names, ", "),
		Count:    len(names),
		PageURL:  pageURL,
	}), true
}

// VendorFinding lists detected third-party vendors. ok is false when none
// were detected.
func VendorFinding(warnings []model.VendorWarning, pageURL string) (f model.Finding, ok bool) {
	if len(warnings) == 0 {
		return model.Finding{}, false
	}
	names := make([]string, 0, len(warnings))
	for _, w := range warnings {
		names = append(names, w.Vendor)
	}

	return fromRule(RuleVendors, model.Finding{
		Severity: model.SeverityMedium,
		Message:  fmt.Sprintf("%d third-party vendor(s) detected that require accessibility verification", len(warnings)),
		Details:  "Detected: " + strings.Join(names, ", "),
		Count:    len(warnings),
		PageURL:  pageURL,
	}), true
}

func fromRule(id string, f model.Finding) model.Finding {
	r, _ := Lookup(id)
	f.ID = id
	f.Check = r.Check
	f.WCAGCriterion = r.Criterion
	f.WCAGName = r.Name
	f.WCAGLevel = r.Level
	f.WCAGPrinciple = r.Principle
	f.Remediation = r.Remediation
	f.Impact = r.Impact
	f.ManagerGuidance = r.ManagerGuidance
	f.DeveloperGuidance = r.DeveloperGuidance
	return f
}
