package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const psiBody = `{
  "lighthouseResult": {
    "finalUrl": "https://example.com/",
    "categories": {"accessibility": {"score": 0.72}},
    "audits": {
      "image-alt": {
        "title": "Image elements do not have [alt] attributes",
        "description": "Informative elements should aim for short, descriptive alternate text.",
        "score": 0,
        "scoreDisplayMode": "binary",
        "details": {"items": [{"node": {"snippet": "<img src=\"a.png\">", "selector": "img"}}, {"url": "x"}]}
      },
      "color-contrast": {"title": "Contrast", "score": null, "scoreDisplayMode": "notApplicable"}
    }
  }
}`

func TestPageSpeedAuditor_Audit(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pagespeedonline/v5/runPagespeed", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(psiBody))
	}))
	defer srv.Close()

	report, err := NewPageSpeedAuditor(srv.URL, "secret").Audit(context.Background(), Page{URL: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com"}, gotQuery["url"])
	assert.Equal(t, []string{"ACCESSIBILITY"}, gotQuery["category"])
	assert.Equal(t, []string{"secret"}, gotQuery["key"])
	assert.InDelta(t, 0.72, report.Score, 0.0001)

	img := report.Audits["image-alt"]
	require.NotNil(t, img.Score)
	assert.Zero(t, *img.Score)
	assert.Equal(t, 2, img.ItemCount())
	assert.Equal(t, []string{`<img src="a.png">`}, img.Snippets(5))

	cc := report.Audits["color-contrast"]
	assert.Nil(t, cc.Score)
	assert.Equal(t, ModeNotApplicable, cc.ScoreDisplayMode)
}

func TestPageSpeedAuditor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "upstream error", status: http.StatusTooManyRequests, body: `{}`, wantErr: errPageSpeedStatus},
		{name: "missing category", status: http.StatusOK, body: `{"lighthouseResult":{"categories":{}}}`, wantErr: errNoCategory},
		{name: "bad json", status: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewPageSpeedAuditor(srv.URL, "").Audit(context.Background(), Page{URL: "https://example.com"})

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
