package model

import "math"

// Summary rolls up a finding collection. It is always derived with Summarize.
type Summary struct {
	Total              int  `json:"total"`
	Critical           int  `json:"critical"`
	High               int  `json:"high"`
	Medium             int  `json:"medium"`
	Low                int  `json:"low"`
	AccessibilityScore *int `json:"accessibilityScore,omitempty"`
}

// Summarize counts findings per severity. Findings with an unrecognised
// severity are counted as low so that the four buckets always sum to Total.
func Summarize(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// WithScore returns s carrying the given accessibility score.
func (s Summary) WithScore(score int) Summary {
	s.AccessibilityScore = &score
	return s
}

// Score returns the accessibility score, or 0 when unset.
func (s Summary) Score() int {
	if s.AccessibilityScore == nil {
		return 0
	}
	return *s.AccessibilityScore
}

// MeanScore is the rounded arithmetic mean of per-page scores, 0 for no pages.
func MeanScore(pages []PageResult) int {
	if len(pages) == 0 {
		return 0
	}
	var sum int
	for _, p := range pages {
		sum += p.AccessibilityScore
	}
	return int(math.Round(float64(sum) / float64(len(pages))))
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	return min(max(score, 0), 100)
}
