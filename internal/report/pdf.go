package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Bahjat/comply-scanner/internal/model"
)

var (
	colorPrimary   = [3]int{30, 58, 95}
	colorTextDark  = [3]int{17, 24, 39}
	colorTextMuted = [3]int{107, 114, 128}
	colorRule      = [3]int{229, 231, 235}
	colorOK        = [3]int{22, 163, 74}
	colorWarn      = [3]int{202, 138, 4}
	colorDanger    = [3]int{220, 38, 38}
)

var severityRGB = map[model.Severity][3]int{
	model.SeverityCritical: {220, 38, 38},
	model.SeverityHigh:     {234, 88, 12},
	model.SeverityMedium:   {202, 138, 4},
	model.SeverityLow:      {37, 99, 235},
}

// PDFGenerator renders scan reports as PDF documents.
type PDFGenerator struct {
	now func() time.Time
}

// NewPDFGenerator creates a new PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{now: time.Now}
}

// Generate renders rec as a printable report.
func (g *PDFGenerator) Generate(rec *model.ScanRecord) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle("Accessibility Report: "+rec.WebsiteURL, true)
	pdf.SetLang("en-US")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	g.writeHeader(pdf, tr, rec)

	for _, page := range rec.PageResults {
		g.writePage(pdf, tr, page)
	}
	if len(rec.PdfResults) > 0 {
		g.writePdfTable(pdf, tr, rec.PdfResults)
	}
	if len(rec.VendorWarnings) > 0 {
		g.writeVendors(pdf, tr, rec.VendorWarnings)
	}
	g.writeDisclaimer(pdf, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}
	return buf.Bytes(), nil
}

func setText(pdf *fpdf.Fpdf, c [3]int) {
	pdf.SetTextColor(c[0], c[1], c[2])
}

func (g *PDFGenerator) writeHeader(pdf *fpdf.Fpdf, tr func(string) string, rec *model.ScanRecord) {
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, 0, pageWidth, 6, "F")

	pdf.SetY(16)
	pdf.SetFont("Arial", "B", 20)
	setText(pdf, colorTextDark)
	pdf.CellFormat(0, 10, "Accessibility Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	setText(pdf, colorTextMuted)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s - %d page(s) scanned - generated %s",
		rec.WebsiteURL, max(rec.PagesScanned, 1), g.now().Format("Jan 2, 2006"))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	score := rec.Summary.Score()
	switch {
	case score >= 90:
		setText(pdf, colorOK)
	case score >= 70:
		setText(pdf, colorWarn)
	default:
		setText(pdf, colorDanger)
	}
	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(30, 12, fmt.Sprint(score), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	setText(pdf, colorTextDark)
	s := rec.Summary
	pdf.CellFormat(0, 12, fmt.Sprintf("/100   %d issues: %d critical, %d high, %d medium, %d low",
		s.Total, s.Critical, s.High, s.Medium, s.Low), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (g *PDFGenerator) writePage(pdf *fpdf.Fpdf, tr func(string) string, page model.PageResult) {
	g.sectionTitle(pdf, tr, pageHeading(page))
	pdf.SetFont("Arial", "", 9)
	setText(pdf, colorTextMuted)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s - score %d/100", page.PageURL, page.AccessibilityScore)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(page.Findings) == 0 {
		pdf.SetFont("Arial", "", 10)
		setText(pdf, colorOK)
		pdf.CellFormat(0, 6, "No automated issues found on this page.", "", 1, "L", false, 0, "")
		pdf.Ln(2)
		return
	}

	for _, f := range page.Findings {
		c := severityRGB[f.Severity]
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(c[0], c[1], c[2])
		label := fmt.Sprintf("[%s] ", f.Severity)
		pdf.CellFormat(pdf.GetStringWidth(label)+1, 6, label, "", 0, "L", false, 0, "")
		setText(pdf, colorTextDark)
		title := f.Check
		if f.WCAGCriterion != "" {
			title += fmt.Sprintf("  (WCAG %s %s, Level %s)", f.WCAGCriterion, f.WCAGName, f.WCAGLevel)
		}
		pdf.CellFormat(0, 6, tr(title), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		msg := f.Message
		if f.Count > 0 {
			msg += fmt.Sprintf(" (%d)", f.Count)
		}
		pdf.MultiCell(0, 4.5, tr(msg), "", "L", false)
		for _, line := range []struct{ label, text string }{
			{"Why it matters: ", f.Impact},
			{"Fix: ", f.Remediation},
			{"For developers: ", f.DeveloperGuidance},
		} {
			if line.text == "" {
				continue
			}
			setText(pdf, colorTextMuted)
			pdf.MultiCell(0, 4.5, tr(line.label+line.text), "", "L", false)
		}
		setText(pdf, colorTextDark)
		pdf.SetDrawColor(colorRule[0], colorRule[1], colorRule[2])
		pdf.Ln(1)
		x, y := pdf.GetXY()
		pageWidth, _ := pdf.GetPageSize()
		pdf.Line(x, y, pageWidth-18, y)
		pdf.Ln(2)
	}
}

func (g *PDFGenerator) writePdfTable(pdf *fpdf.Fpdf, tr func(string) string, results []model.PdfCheckResult) {
	g.sectionTitle(pdf, tr, "PDF Documents")
	widths := []float64{74, 22, 22, 22, 34}
	headers := []string{"File", "Language", "Tagged", "Title", "Status"}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	setText(pdf, colorTextDark)
	for _, r := range results {
		status := "not accessible"
		switch {
		case r.Error != "":
			status = "unknown"
		case r.IsAccessible:
			status = "accessible"
		}
		cells := []string{truncate(r.Filename, 40), yesNo(r.HasLangTag), yesNo(r.HasMarkInfo), yesNo(r.HasTitle), status}
		for i, c := range cells {
			align := "C"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, tr(c), "B", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func (g *PDFGenerator) writeVendors(pdf *fpdf.Fpdf, tr func(string) string, warnings []model.VendorWarning) {
	g.sectionTitle(pdf, tr, "Third-Party Vendor Risk")
	for _, w := range warnings {
		pdf.SetFont("Arial", "B", 10)
		setText(pdf, colorTextDark)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s - %s (%s)", w.Vendor, w.Category, w.DetectedVia)), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 4.5, tr(w.Warning), "", "L", false)
		setText(pdf, colorTextMuted)
		pdf.MultiCell(0, 4.5, tr("Action: "+w.Action), "", "L", false)
		pdf.Ln(3)
	}
}

func (g *PDFGenerator) writeDisclaimer(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	setText(pdf, colorTextMuted)
	pdf.MultiCell(0, 4, tr("WCAG levels: A is the minimum, AA is the standard referenced by the ADA and HHS Section 504, "+
		"AAA is enhanced. This report was generated by automated testing and is not a legal determination of compliance."),
		"", "L", false)
}

func (g *PDFGenerator) sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 13)
	setText(pdf, colorPrimary)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
}

func pageHeading(p model.PageResult) string {
	if p.PageTitle != "" {
		return p.PageTitle
	}
	return p.PageURL
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
