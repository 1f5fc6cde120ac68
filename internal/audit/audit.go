// Package audit defines the accessibility-audit capability and its
// implementations. Reports are Lighthouse-shaped so that any engine can feed
// the finding enricher.
package audit

import (
	"context"

	"github.com/Bahjat/comply-scanner/internal/model"
	"github.com/Bahjat/comply-scanner/internal/pageinsight"
)

// Score display modes. NotApplicable, Informative and Manual audits never
// produce findings.
const (
	ModeBinary        = "binary"
	ModeNumeric       = "numeric"
	ModeNotApplicable = "notApplicable"
	ModeInformative   = "informative"
	ModeManual        = "manual"
)

// Page is the input to an audit: a page that has already been fetched and
// parsed. Remote engines only need URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Doc        *pageinsight.ParseResult
}

// Report is the outcome of auditing one page.
type Report struct {
	Score  float64 // 0..1
	Title  string
	Audits map[string]Audit
}

// Audit is one rule evaluation. A nil Score means the rule was not scored.
type Audit struct {
	Score            *float64
	ScoreDisplayMode string
	Title            string
	Description      string
	Severity         model.Severity // fixed bucket; empty means derive from Score
	Details          *Details
}

// Details lists the elements an audit flagged.
type Details struct {
	Items []Item
}

// Item is one flagged element.
type Item struct {
	Node Node
}

// Node identifies an element in the page.
type Node struct {
	Snippet  string
	Selector string
}

// Auditor runs an accessibility audit on a page.
type Auditor interface {
	Audit(ctx context.Context, page Page) (*Report, error)
}

// ItemCount returns the number of flagged elements.
func (a Audit) ItemCount() int {
	if a.Details == nil {
		return 0
	}
	return len(a.Details.Items)
}

// Snippets returns up to limit element snippets, skipping blanks.
func (a Audit) Snippets(limit int) []string {
	if a.Details == nil {
		return nil
	}
	var out []string
	for _, it := range a.Details.Items {
		if len(out) == limit {
			break
		}
		if it.Node.Snippet != "" {
			out = append(out, it.Node.Snippet)
		}
	}
	return out
}

func score(v float64) *float64 {
	return &v
}
