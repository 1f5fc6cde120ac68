package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func findings(sevs ...Severity) []Finding {
	out := make([]Finding, len(sevs))
	for i, s := range sevs {
		out[i] = Finding{ID: string(s), Severity: s, Message: string(s) + " issue"}
	}
	return out
}

func TestSummarize_PartitionsFindings(t *testing.T) {
	tests := []struct {
		name string
		in   []Finding
		want Summary
	}{
		{name: "empty", in: nil, want: Summary{}},
		{
			name: "mixed",
			in:   findings(SeverityLow, SeverityCritical, SeverityHigh, SeverityHigh, SeverityMedium),
			want: Summary{Total: 5, Critical: 1, High: 2, Medium: 1, Low: 1},
		},
		{
			name: "unknown severity counts as low",
			in:   []Finding{{ID: "x", Severity: "weird"}},
			want: Summary{Total: 1, Low: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.in), got.Total)
			assert.Equal(t, got.Total, got.Critical+got.High+got.Medium+got.Low)
		})
	}
}

func TestSortBySeverity_Stable(t *testing.T) {
	in := []Finding{
		{ID: "a", Severity: SeverityMedium},
		{ID: "b", Severity: SeverityCritical},
		{ID: "c", Severity: SeverityMedium},
		{ID: "d", Severity: SeverityHigh},
		{ID: "e", Severity: SeverityCritical},
	}

	got := SortBySeverity(in)

	ids := make([]string, len(got))
	for i, f := range got {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"b", "e", "d", "a", "c"}, ids)
	assert.Equal(t, "a", in[0].ID, "input must not be reordered")
}

func TestTopIssue(t *testing.T) {
	assert.Equal(t, NoIssues, TopIssue(nil))
	assert.Equal(t, "critical issue", TopIssue(findings(SeverityLow, SeverityCritical, SeverityHigh)))
}

func TestDistinctRules(t *testing.T) {
	in := []Finding{{ID: "image-alt"}, {ID: "image-alt"}, {ID: "label"}}
	assert.Equal(t, 2, DistinctRules(in))
	assert.Equal(t, 0, DistinctRules(nil))
}

func TestMeanScore(t *testing.T) {
	pages := []PageResult{{AccessibilityScore: 80}, {AccessibilityScore: 91}, {AccessibilityScore: 70}}
	assert.Equal(t, 80, MeanScore(pages))
	assert.Equal(t, 0, MeanScore(nil))
	assert.Equal(t, 86, MeanScore([]PageResult{{AccessibilityScore: 85}, {AccessibilityScore: 86}}))
}

func TestNewPageResult(t *testing.T) {
	p := NewPageResult("https://example.com", "Home", 140, findings(SeverityHigh, SeverityLow))

	assert.Equal(t, 100, p.AccessibilityScore)
	assert.Equal(t, 2, p.Summary.Total)
	assert.Equal(t, 100, p.Summary.Score())

	empty := NewPageResult("https://example.com", "", -3, nil)
	assert.Equal(t, 0, empty.AccessibilityScore)
	assert.NotNil(t, empty.Findings)
}

func TestNewTeaser(t *testing.T) {
	fs := []Finding{
		{ID: "label", Severity: SeverityHigh, Message: "labels"},
		{ID: "is-on-https", Severity: SeverityCritical, Message: "no https"},
		{ID: "label", Severity: SeverityHigh, Message: "labels again"},
	}
	teaser := NewTeaser(fs, Summarize(fs).WithScore(64))

	assert.Equal(t, "no https", teaser.TopIssue)
	assert.Equal(t, 2, teaser.IssueCount)
	assert.Equal(t, 64, *teaser.AccessibilityScore)
}

func TestWCAGLevel_Valid(t *testing.T) {
	assert.True(t, LevelA.Valid())
	assert.True(t, LevelAA.Valid())
	assert.True(t, LevelAAA.Valid())
	assert.False(t, WCAGLevel("B").Valid())
	assert.False(t, WCAGLevel("").Valid())
}
