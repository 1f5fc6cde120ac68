package report

import (
	"bytes"
	"fmt"
	"html"
	"time"
)

const badgeGrey = "#6b7280"

// Badge renders the embeddable score badge. A nil score renders "?" on grey.
func Badge(score *int, scanned *time.Time) []byte {
	date := "Not scanned"
	if scanned != nil {
		date = scanned.Format("Jan 2, 2006")
	}

	color, display := badgeGrey, "?"
	if score != nil {
		color, display = scoreColor(*score), fmt.Sprint(*score)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg width="200" height="36" viewBox="0 0 200 36" xmlns="http://www.w3.org/2000/svg" role="img" aria-label="Accessibility score %s">
  <rect width="200" height="36" rx="4" fill="#f8f9fa" stroke="#e5e7eb"/>
  <rect width="36" height="36" rx="4" fill="%s"/>
  <text x="18" y="22" text-anchor="middle" fill="white" font-size="14" font-weight="bold" font-family="system-ui, sans-serif">%s</text>
  <text x="44" y="15" fill="#111827" font-size="10" font-weight="600" font-family="system-ui, sans-serif">Accessibility Monitored</text>
  <text x="44" y="27" fill="#6b7280" font-size="9" font-family="system-ui, sans-serif">by Comply · %s</text>
</svg>`, display, color, display, date)
	return b.Bytes()
}

// ErrorBadge renders a neutral badge carrying message.
func ErrorBadge(message string) []byte {
	return []byte(fmt.Sprintf(`<svg width="200" height="36" viewBox="0 0 200 36" xmlns="http://www.w3.org/2000/svg" role="img" aria-label="%[1]s">
  <rect width="200" height="36" rx="4" fill="#f3f4f6" stroke="#e5e7eb"/>
  <text x="100" y="22" text-anchor="middle" fill="#6b7280" font-size="10" font-family="system-ui, sans-serif">%[1]s</text>
</svg>`, html.EscapeString(message)))
}
