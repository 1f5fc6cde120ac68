package pageinsight

import (
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

const maxSnippet = 200

// ParseResult holds everything extracted from a single-pass HTML parse.
type ParseResult struct {
	Title    string
	Lang     string
	Headings map[string]int
	Links    []Link
	Images   []Image
	Inputs   []FormInput
	Anchors  []Anchor
	Embeds   []Embed
	PDFLinks []string
}

// Link represents a URL found on the page with its classification.
type Link struct {
	URL        string
	IsInternal bool
}

// Image is an <img> element.
type Image struct {
	Snippet string
	HasAlt  bool // alt present and not blank
}

// FormInput is a text-like <input> a user types into.
type FormInput struct {
	Snippet  string
	ID       string
	Labelled bool // wrapped in <label>, or has aria-label / aria-labelledby / title
}

// Anchor is an <a href> element and whether it exposes an accessible name.
type Anchor struct {
	Snippet string
	HasName bool
}

// Embed is a third-party reference found in markup.
type Embed struct {
	Via   string // "iframe", "script" or "link"
	Value string
}

// parseState tracks open elements during tokenization. Inputs are matched
// against labelFor after the parse since a label may follow its input.
type parseState struct {
	labelFor   map[string]bool
	labelDepth int
	anchor     *anchorState
	inTitle    bool
	seenPDF    map[string]bool
}

type anchorState struct {
	snippet string
	named   bool
}

var textInputTypes = map[string]bool{
	"": true, "text": true, "email": true, "tel": true, "password": true,
	"search": true, "url": true, "number": true,
}

// Parse performs a single-pass traversal of the HTML body, extracting the
// title, document language, headings, links, images, form inputs, anchors,
// third-party embeds and linked PDF documents.
func Parse(body io.Reader, baseURL *url.URL) (*ParseResult, error) {
	result := &ParseResult{
		Headings: map[string]int{"h1": 0, "h2": 0, "h3": 0, "h4": 0, "h5": 0, "h6": 0},
	}
	st := &parseState{labelFor: map[string]bool{}, seenPDF: map[string]bool{}}

	z := html.NewTokenizer(body)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				result.resolveLabels(st.labelFor)
				if st.anchor != nil {
					result.Anchors = append(result.Anchors, Anchor{Snippet: st.anchor.snippet, HasName: st.anchor.named})
				}
				return result, nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			raw := snippet(z.Raw())
			tok := z.Token()
			result.startTag(st, tok, raw, tt == html.SelfClosingTagToken, baseURL)

		case html.TextToken:
			if st.inTitle {
				result.Title = strings.TrimSpace(string(z.Text()))
				st.inTitle = false
				continue
			}
			if st.anchor != nil && strings.TrimSpace(string(z.Text())) != "" {
				st.anchor.named = true
			}

		case html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "title":
				st.inTitle = false
			case "label":
				if st.labelDepth > 0 {
					st.labelDepth--
				}
			case "a":
				if st.anchor != nil {
					result.Anchors = append(result.Anchors, Anchor{Snippet: st.anchor.snippet, HasName: st.anchor.named})
					st.anchor = nil
				}
			}
		}
	}
}

func (r *ParseResult) startTag(st *parseState, tok html.Token, raw string, selfClosing bool, baseURL *url.URL) {
	attrs := attrMap(tok.Attr)

	switch tag := tok.Data; {
	case tag == "html":
		r.Lang = strings.TrimSpace(attrs["lang"])

	case tag == "title":
		st.inTitle = true

	case isHeading(tag):
		r.Headings[tag]++

	case tag == "img":
		r.Images = append(r.Images, Image{Snippet: raw, HasAlt: strings.TrimSpace(attrs["alt"]) != ""})
		if st.anchor != nil && strings.TrimSpace(attrs["alt"]) != "" {
			st.anchor.named = true
		}

	case tag == "label":
		if id := strings.TrimSpace(attrs["for"]); id != "" {
			st.labelFor[id] = true
		}
		if !selfClosing {
			st.labelDepth++
		}

	case tag == "input":
		if !textInputTypes[strings.ToLower(strings.TrimSpace(attrs["type"]))] {
			return
		}
		r.Inputs = append(r.Inputs, FormInput{
			Snippet: raw,
			ID:      strings.TrimSpace(attrs["id"]),
			Labelled: st.labelDepth > 0 ||
				strings.TrimSpace(attrs["aria-label"]) != "" ||
				strings.TrimSpace(attrs["aria-labelledby"]) != "" ||
				strings.TrimSpace(attrs["title"]) != "",
		})

	case tag == "iframe" || tag == "script":
		if src := strings.TrimSpace(attrs["src"]); src != "" {
			r.Embeds = append(r.Embeds, Embed{Via: tag, Value: src})
		}
	}

	href, hasHref := attrs["href"]
	if !hasHref {
		return
	}
	href = strings.TrimSpace(href)
	if href != "" {
		r.Embeds = append(r.Embeds, Embed{Via: "link", Value: href})
	}

	if tok.Data != "a" && tok.Data != "area" {
		return
	}
	if tok.Data == "a" && !selfClosing {
		if st.anchor != nil {
			r.Anchors = append(r.Anchors, Anchor{Snippet: st.anchor.snippet, HasName: st.anchor.named})
		}
		st.anchor = &anchorState{
			snippet: raw,
			named:   strings.TrimSpace(attrs["aria-label"]) != "" || strings.TrimSpace(attrs["title"]) != "",
		}
	}

	link, ok := classifyLink(href, baseURL)
	if !ok {
		return
	}
	r.Links = append(r.Links, link)
	if isPDF(link.URL) && !st.seenPDF[link.URL] {
		st.seenPDF[link.URL] = true
		r.PDFLinks = append(r.PDFLinks, link.URL)
	}
}

func (r *ParseResult) resolveLabels(labelFor map[string]bool) {
	for i, in := range r.Inputs {
		if !in.Labelled && in.ID != "" && labelFor[in.ID] {
			r.Inputs[i].Labelled = true
		}
	}
}

func attrMap(attrs []html.Attribute) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if _, dup := m[a.Key]; !dup {
			m[a.Key] = a.Val
		}
	}
	return m
}

func snippet(raw []byte) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	if len(s) > maxSnippet {
		s = s[:maxSnippet] + "..."
	}
	return s
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func isPDF(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

func classifyLink(href string, baseURL *url.URL) (Link, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return Link{}, false
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return Link{}, false
	}

	resolved := baseURL.ResolveReference(parsed)
	resolved.Fragment = ""

	// Skip non-http(s) schemes (mailto:, javascript:, tel:, etc.)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return Link{}, false
	}

	return Link{URL: resolved.String(), IsInternal: sameSite(resolved.Host, baseURL.Host)}, true
}

// sameSite compares hosts case-insensitively, treating a leading "www." as
// insignificant.
func sameSite(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(strings.ToLower(a), "www."), strings.TrimPrefix(strings.ToLower(b), "www."))
}
