package middleware

import (
	"net/http"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

// CORS answers preflight requests and sets Access-Control headers. Origins
// matching one of the patterns (e.g. "https://*.vercel.app") are echoed back;
// any other origin receives the first pattern.
func CORS(patterns []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin(patterns, r.Header.Get("Origin")))
			h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowedOrigin(patterns []string, origin string) string {
	if len(patterns) == 0 {
		return "*"
	}
	if origin != "" {
		for _, p := range patterns {
			if wildcard.Match(p, origin) {
				return origin
			}
		}
	}
	return patterns[0]
}
