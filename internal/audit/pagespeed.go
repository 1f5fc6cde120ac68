package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultPageSpeedBase is the public Google API host.
	DefaultPageSpeedBase = "https://www.googleapis.com"
	pageSpeedTimeout     = 25 * time.Second
	maxPageSpeedBody     = 20 << 20
)

var (
	errPageSpeedStatus = errors.New("pagespeed: unexpected status")
	errNoCategory      = errors.New("pagespeed: response has no accessibility category")
)

// PageSpeedAuditor runs audits through the PageSpeed Insights API. It fetches
// the page itself, so only Page.URL is used.
type PageSpeedAuditor struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewPageSpeedAuditor returns an auditor calling baseURL (DefaultPageSpeedBase
// when empty) with the given API key.
func NewPageSpeedAuditor(baseURL, apiKey string) *PageSpeedAuditor {
	if baseURL == "" {
		baseURL = DefaultPageSpeedBase
	}
	return &PageSpeedAuditor{
		client:  &http.Client{Timeout: pageSpeedTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type psiResponse struct {
	LighthouseResult struct {
		FinalURL   string `json:"finalUrl"`
		Categories struct {
			Accessibility *struct {
				Score *float64 `json:"score"`
			} `json:"accessibility"`
		} `json:"categories"`
		Audits map[string]psiAudit `json:"audits"`
	} `json:"lighthouseResult"`
}

type psiAudit struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	Details          *struct {
		Items []struct {
			Node *struct {
				Snippet  string `json:"snippet"`
				Selector string `json:"selector"`
			} `json:"node"`
		} `json:"items"`
	} `json:"details"`
}

// Audit requests an accessibility-only Lighthouse run for page.URL.
func (p *PageSpeedAuditor) Audit(ctx context.Context, page Page) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, pageSpeedTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("url", page.URL)
	q.Set("category", "ACCESSIBILITY")
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}
	endpoint := p.baseURL + "/pagespeedonline/v5/runPagespeed?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pagespeed: creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pagespeed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errPageSpeedStatus, resp.StatusCode)
	}

	var body psiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPageSpeedBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("pagespeed: decoding response: %w", err)
	}

	cat := body.LighthouseResult.Categories.Accessibility
	if cat == nil || cat.Score == nil {
		return nil, errNoCategory
	}

	report := &Report{
		Score:  *cat.Score,
		Audits: make(map[string]Audit, len(body.LighthouseResult.Audits)),
	}
	for id, a := range body.LighthouseResult.Audits {
		out := Audit{
			Score:            a.Score,
			ScoreDisplayMode: a.ScoreDisplayMode,
			Title:            a.Title,
			Description:      a.Description,
		}
		if a.Details != nil && len(a.Details.Items) > 0 {
			out.Details = &Details{Items: make([]Item, 0, len(a.Details.Items))}
			for _, it := range a.Details.Items {
				var n Node
				if it.Node != nil {
					n = Node{Snippet: it.Node.Snippet, Selector: it.Node.Selector}
				}
				out.Details.Items = append(out.Details.Items, Item{Node: n})
			}
		}
		report.Audits[id] = out
	}
	return report, nil
}

var _ Auditor = (*PageSpeedAuditor)(nil)
