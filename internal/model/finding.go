package model

import "sort"

// Severity buckets a finding by how strongly it blocks assistive technology users.
type Severity string

// Severity values, most severe first.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities; lower is more severe. Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// WCAGLevel is a WCAG conformance tier.
type WCAGLevel string

// WCAG conformance levels.
const (
	LevelA   WCAGLevel = "A"
	LevelAA  WCAGLevel = "AA"
	LevelAAA WCAGLevel = "AAA"
)

// Valid reports whether l is one of A, AA or AAA.
func (l WCAGLevel) Valid() bool {
	return l == LevelA || l == LevelAA || l == LevelAAA
}

// NoIssues is the teaser headline used when a scan produced no findings.
const NoIssues = "No issues found"

// MaxElements caps the offending element snippets carried by a Finding.
const MaxElements = 5

// Finding is one detected accessibility defect with its remediation context.
// Findings are values; they are built once by the enricher and never mutated.
type Finding struct {
	ID                string    `json:"id"`
	Check             string    `json:"check"`
	Severity          Severity  `json:"severity"`
	Message           string    `json:"message"`
	Details           string    `json:"details,omitempty"`
	Count             int       `json:"count,omitempty"`
	WCAGCriterion     string    `json:"wcagCriterion,omitempty"`
	WCAGName          string    `json:"wcagName,omitempty"`
	WCAGLevel         WCAGLevel `json:"wcagLevel,omitempty"`
	WCAGPrinciple     string    `json:"wcagPrinciple,omitempty"`
	PageURL           string    `json:"pageUrl,omitempty"`
	Remediation       string    `json:"remediation,omitempty"`
	Impact            string    `json:"impact,omitempty"`
	ManagerGuidance   string    `json:"managerGuidance,omitempty"`
	DeveloperGuidance string    `json:"developerGuidance,omitempty"`
	Elements          []string  `json:"elements,omitempty"`
}

// SortBySeverity returns a copy of findings ordered most severe first. The
// sort is stable, so findings of equal severity keep their relative order.
func SortBySeverity(findings []Finding) []Finding {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
	})
	return sorted
}

// TopIssue returns the message of the most severe finding, or NoIssues.
func TopIssue(findings []Finding) string {
	if len(findings) == 0 {
		return NoIssues
	}
	return SortBySeverity(findings)[0].Message
}

// DistinctRules counts unique rule identifiers across findings.
func DistinctRules(findings []Finding) int {
	seen := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		seen[f.ID] = struct{}{}
	}
	return len(seen)
}
