package pageinsight

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// MaxDiscoveredLinks caps how many sub-pages DiscoverLinks returns.
const MaxDiscoveredLinks = 3

// priorityPatterns are matched case-insensitively against a link's path.
// Earlier patterns rank higher.
var priorityPatterns = []string{
	"contact", "appointment", "schedule", "book", "request",
	"patient", "portal", "intake", "form", "new-patient",
	"provider", "doctor", "physician", "team",
	"insurance", "billing", "pay",
	"location", "services", "telehealth", "accessibility",
}

var assetExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".svg": true, ".webp": true, ".zip": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true, ".mp4": true,
	".mp3": true, ".css": true, ".js": true, ".xml": true, ".ico": true,
}

// DiscoverLinks picks up to MaxDiscoveredLinks same-site pages worth auditing
// after the page at base. Links matching a priority pattern come first, in
// pattern order; ties keep document order.
func DiscoverLinks(doc *ParseResult, base *url.URL) []string {
	if doc == nil || base == nil {
		return nil
	}

	type candidate struct {
		url  string
		rank int
	}

	basePath := canonicalPath(base.Path)
	seen := map[string]bool{}
	var candidates []candidate

	for _, link := range doc.Links {
		if !link.IsInternal {
			continue
		}
		u, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		u.Fragment = ""

		p := canonicalPath(u.Path)
		if p == "/" || p == basePath {
			continue
		}
		if assetExtensions[strings.ToLower(path.Ext(p))] {
			continue
		}

		key := strings.TrimPrefix(strings.ToLower(u.Host), "www.") + p
		if seen[key] {
			continue
		}
		seen[key] = true

		candidates = append(candidates, candidate{url: u.String(), rank: linkRank(p)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rank < candidates[j].rank
	})

	if len(candidates) > MaxDiscoveredLinks {
		candidates = candidates[:MaxDiscoveredLinks]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.url)
	}
	return out
}

func linkRank(p string) int {
	p = strings.ToLower(p)
	for i, pattern := range priorityPatterns {
		if strings.Contains(p, pattern) {
			return i
		}
	}
	return len(priorityPatterns)
}

func canonicalPath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
