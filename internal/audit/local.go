package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/Bahjat/comply-scanner/internal/model"
)

var errNoDocument = errors.New("audit: page has no parsed document")

// check is a single local rule.
type check struct {
	id          string
	title       string
	message     string // failure title; %d is replaced with the element count
	description string
	severity    model.Severity
	weight      int
	run         func(page Page) outcome
}

type outcome struct {
	applicable bool
	failed     bool
	items      []Item
}

var (
	pass          = outcome{applicable: true}
	notApplicable = outcome{}
)

func fail(items ...Item) outcome {
	return outcome{applicable: true, failed: true, items: items}
}

var localChecks = []check{
	{
		id:          "is-on-https",
		title:       "Page is served over HTTPS",
		message:     "Website is not using HTTPS",
		description: "Secure connections (HTTPS) are required for healthcare websites to protect patient data.",
		severity:    model.SeverityCritical,
		weight:      10,
		run: func(p Page) outcome {
			u, err := url.Parse(p.FinalURL)
			if err == nil && strings.EqualFold(u.Scheme, "https") {
				return pass
			}
			return fail()
		},
	},
	{
		id:          "image-alt",
		title:       "Image elements have [alt] attributes",
		message:     "%d image(s) missing alt text",
		description: "Screen readers cannot describe images without alt text, making content inaccessible to visually impaired users.",
		severity:    model.SeverityHigh,
		weight:      10,
		run: func(p Page) outcome {
			var items []Item
			for _, img := range p.Doc.Images {
				if !img.HasAlt {
					items = append(items, Item{Node: Node{Snippet: img.Snippet, Selector: "img"}})
				}
			}
			return collect(len(p.Doc.Images), items)
		},
	},
	{
		id:          "html-has-lang",
		title:       "<html> element has a [lang] attribute",
		message:     "Missing language attribute on HTML element",
		description: "Screen readers need the lang attribute to pronounce content correctly.",
		severity:    model.SeverityMedium,
		weight:      7,
		run: func(p Page) outcome {
			if p.Doc.Lang != "" {
				return pass
			}
			return fail()
		},
	},
	{
		id:          "label",
		title:       "Form elements have associated labels",
		message:     "%d form input(s) may be missing labels",
		description: "Form inputs without associated labels are difficult for screen reader users to understand.",
		severity:    model.SeverityHigh,
		weight:      7,
		run: func(p Page) outcome {
			var items []Item
			for _, in := range p.Doc.Inputs {
				if !in.Labelled {
					items = append(items, Item{Node: Node{Snippet: in.Snippet, Selector: "input"}})
				}
			}
			return collect(len(p.Doc.Inputs), items)
		},
	},
	{
		id:          "page-has-heading-one",
		title:       "Page has an <h1> heading",
		message:     "No H1 heading found",
		description: "Pages should have a main heading (H1) to help users understand the page structure.",
		severity:    model.SeverityMedium,
		weight:      3,
		run: func(p Page) outcome {
			if p.Doc.Headings["h1"] > 0 {
				return pass
			}
			return fail()
		},
	},
	{
		id:          "document-title",
		title:       "Document has a <title> element",
		message:     "Missing or empty page title",
		description: "Page titles help users identify the page and are announced by screen readers.",
		severity:    model.SeverityLow,
		weight:      7,
		run: func(p Page) outcome {
			if p.Doc.Title != "" {
				return pass
			}
			return fail()
		},
	},
	{
		id:          "link-name",
		title:       "Links have a discernible name",
		message:     "%d empty link(s) found",
		description: "Links without text content are confusing for screen reader users.",
		severity:    model.SeverityHigh,
		weight:      7,
		run: func(p Page) outcome {
			var items []Item
			for _, a := range p.Doc.Anchors {
				if !a.HasName {
					items = append(items, Item{Node: Node{Snippet: a.Snippet, Selector: "a"}})
				}
			}
			return collect(len(p.Doc.Anchors), items)
		},
	},
}

func (c check) failure(n int) string {
	if strings.Contains(c.message, "%d") {
		return fmt.Sprintf(c.message, n)
	}
	return c.message
}

// collect turns the offending elements out of n candidates into an outcome.
func collect(n int, items []Item) outcome {
	switch {
	case n == 0:
		return notApplicable
	case len(items) == 0:
		return pass
	default:
		return fail(items...)
	}
}

// LocalAuditor evaluates a fixed set of WCAG checks against the parsed page
// without any network access.
type LocalAuditor struct{}

// NewLocalAuditor returns the built-in auditor.
func NewLocalAuditor() *LocalAuditor {
	return &LocalAuditor{}
}

// Audit runs every local check. The page score is the weighted share of
// applicable checks that pass.
func (LocalAuditor) Audit(ctx context.Context, page Page) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page.Doc == nil {
		return nil, errNoDocument
	}
	if page.FinalURL == "" {
		page.FinalURL = page.URL
	}

	report := &Report{
		Title:  page.Doc.Title,
		Audits: make(map[string]Audit, len(localChecks)),
	}

	var passed, total int
	for _, c := range localChecks {
		res := c.run(page)
		if !res.applicable {
			report.Audits[c.id] = Audit{ScoreDisplayMode: ModeNotApplicable, Title: c.title, Description: c.description}
			continue
		}

		total += c.weight
		if !res.failed {
			passed += c.weight
			report.Audits[c.id] = Audit{Score: score(1), ScoreDisplayMode: ModeBinary, Title: c.title, Description: c.description}
			continue
		}

		a := Audit{
			Score:            score(0),
			ScoreDisplayMode: ModeBinary,
			Title:            c.failure(len(res.items)),
			Description:      c.description,
			Severity:         c.severity,
		}
		if len(res.items) > 0 {
			a.Details = &Details{Items: res.items}
		}
		report.Audits[c.id] = a
	}

	if total > 0 {
		report.Score = math.Round(float64(passed)/float64(total)*100) / 100
	}
	return report, nil
}

var _ Auditor = (*LocalAuditor)(nil)
