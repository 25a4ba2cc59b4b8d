package generators

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// A4 portrait layout constants, in millimetres.
const (
	pdfPageHeight = 297.0
	pdfMarginX    = 12.0
	pdfBottomY    = 282.0 // usable height before forcing a page break
	pdfLineH      = 5.5
)

// DefaultPDFRecordCap bounds the record table so very large exports stay
// readable; the full dataset belongs in Excel or CSV.
const DefaultPDFRecordCap = 50

// PDFGenerator renders the paginated report document: letterhead, bordered
// executive summary, breakdown sections, trend chart, and a capped record
// table.
type PDFGenerator struct {
	RecordCap int
}

// NewPDFGenerator creates a PDF generator with the given record-table cap.
// A cap <= 0 falls back to the default.
func NewPDFGenerator(recordCap int) *PDFGenerator {
	if recordCap <= 0 {
		recordCap = DefaultPDFRecordCap
	}
	return &PDFGenerator{RecordCap: recordCap}
}

// Format returns the format this generator produces.
func (g *PDFGenerator) Format() models.ExportFormat {
	return models.FormatPDF
}

// Probe verifies the PDF encoder can produce output in this process.
func (g *PDFGenerator) Probe() error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, pdfLineH, "probe", "", 1, "L", false, 0, "")
	var buf bytes.Buffer
	return pdf.Output(&buf)
}

// Generate renders the document. Any encoder panic is converted to a
// generator error so a PDF failure never takes down the pipeline.
func (g *PDFGenerator) Generate(bundle *models.ExportBundle) (artifact *models.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact = nil
			err = models.NewGeneratorError(models.FormatPDF, "PDF generation failed", fmt.Errorf("panic: %v", r))
		}
	}()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginX, 12, pdfMarginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	g.letterhead(pdf, bundle)
	g.summaryBox(pdf, bundle.Stats)

	stats := bundle.Stats
	g.breakdownSection(pdf, "Priority Breakdown", stats.Priorities)
	g.slaSection(pdf, stats)
	g.breakdownSection(pdf, "Category Breakdown", stats.Categories)
	g.breakdownSection(pdf, "Ward Breakdown", stats.Wards)
	g.trendSection(pdf, stats.Trend)
	g.recordTable(pdf, bundle)

	if pdf.Err() {
		return nil, models.NewGeneratorError(models.FormatPDF, "PDF generation failed", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, models.NewGeneratorError(models.FormatPDF, "PDF generation failed", err)
	}

	return &models.Artifact{
		Filename:    Filename(bundle.Options.ReportName, models.FormatPDF, bundle.GeneratedAt),
		ContentType: models.FormatPDF.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// ensureSpace starts a new page when fewer than needed millimetres remain.
func (g *PDFGenerator) ensureSpace(pdf *gofpdf.Fpdf, needed float64) {
	if pdf.GetY()+needed > pdfBottomY {
		pdf.AddPage()
	}
}

func (g *PDFGenerator) letterhead(pdf *gofpdf.Fpdf, bundle *models.ExportBundle) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(31, 78, 121)
	pdf.CellFormat(0, 9, bundle.Options.AppName, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, bundle.Options.ReportName, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	meta := fmt.Sprintf("Generated %s  |  %d records  |  Role: %s",
		bundle.GeneratedAt.Format("2006-01-02 15:04"), len(bundle.Rows), bundle.Options.UserRole)
	pdf.CellFormat(0, 5, meta, "", 1, "L", false, 0, "")

	pdf.SetDrawColor(31, 78, 121)
	pdf.SetLineWidth(0.6)
	y := pdf.GetY() + 1.5
	pdf.Line(pdfMarginX, y, 210-pdfMarginX, y)
	pdf.SetY(y + 4)
	pdf.SetTextColor(0, 0, 0)
}

func (g *PDFGenerator) summaryBox(pdf *gofpdf.Fpdf, stats *models.AnalyticsSummary) {
	pairs := summaryPairs(stats)
	boxH := float64(len(pairs))*pdfLineH + 12
	g.ensureSpace(pdf, boxH+4)

	top := pdf.GetY()
	pdf.SetDrawColor(120, 120, 120)
	pdf.SetLineWidth(0.3)
	pdf.Rect(pdfMarginX, top, 210-2*pdfMarginX, boxH, "D")

	pdf.SetXY(pdfMarginX+4, top+3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Executive Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9.5)
	for _, pair := range pairs {
		pdf.SetX(pdfMarginX + 4)
		pdf.CellFormat(60, pdfLineH, pair[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, pdfLineH, pair[1], "", 1, "L", false, 0, "")
	}

	pdf.SetY(top + boxH + 6)
}

func (g *PDFGenerator) sectionHeading(pdf *gofpdf.Fpdf, title string) {
	g.ensureSpace(pdf, 20)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(31, 78, 121)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func (g *PDFGenerator) breakdownSection(pdf *gofpdf.Fpdf, title string, buckets []models.BucketStat) {
	if len(buckets) == 0 {
		return
	}
	g.sectionHeading(pdf, title)

	headers := []string{"Name", "Count", "Resolved", "Avg Hours", "Efficiency"}
	widths := []float64{66, 28, 28, 32, 32}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 240, 248)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, b := range buckets {
		g.ensureSpace(pdf, 6)
		pdf.CellFormat(widths[0], 6, b.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d", b.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", b.Resolved), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.1f", b.AvgResolutionHours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.1f%%", b.Efficiency), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
}

func (g *PDFGenerator) slaSection(pdf *gofpdf.Fpdf, stats *models.AnalyticsSummary) {
	g.sectionHeading(pdf, "SLA Performance")

	pdf.SetFont("Helvetica", "", 9.5)
	lines := []string{
		fmt.Sprintf("Compliance: %.1f%% (%d on time, %d breached) against a %d hour target.",
			stats.SLA.CompliancePct, stats.SLA.OnTime, stats.SLA.Breached, stats.SLA.TargetHours),
		fmt.Sprintf("Average resolution time: %.1f hours. Currently overdue: %d complaints.",
			stats.SLA.AvgResolutionHours, stats.Overdue),
	}
	for _, line := range lines {
		g.ensureSpace(pdf, pdfLineH)
		pdf.CellFormat(0, pdfLineH, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
}

func (g *PDFGenerator) trendSection(pdf *gofpdf.Fpdf, trend []models.TrendPoint) {
	if len(trend) < 2 {
		return
	}

	png, err := RenderTrendChart(trend)
	if err != nil {
		// Chart is decorative: skip it rather than failing the document
		return
	}

	const chartH = 74.0
	g.ensureSpace(pdf, chartH+14)
	g.sectionHeading(pdf, "Monthly Trend")

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("trend-chart", opts, bytes.NewReader(png))
	pdf.ImageOptions("trend-chart", pdfMarginX, pdf.GetY(), 210-2*pdfMarginX, chartH, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + chartH + 6)
}

// recordTable lists individual records up to the hard cap, with an explicit
// notice when records were omitted.
func (g *PDFGenerator) recordTable(pdf *gofpdf.Fpdf, bundle *models.ExportBundle) {
	if len(bundle.Rows) == 0 {
		return
	}
	g.sectionHeading(pdf, "Complaint Records")

	type col struct {
		name  string
		width float64
	}
	cols := []col{
		{"Complaint ID", 26},
		{"Type", 34},
		{"Status", 26},
		{"Priority", 20},
		{"Ward", 26},
		{"SLA Status", 22},
		{"Submitted On", 32},
	}

	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.SetFillColor(235, 240, 248)
	for _, c := range cols {
		pdf.CellFormat(c.width, 6, c.name, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	capped := bundle.Rows
	if len(capped) > g.RecordCap {
		capped = capped[:g.RecordCap]
	}

	pdf.SetFont("Helvetica", "", 8.5)
	for _, row := range capped {
		g.ensureSpace(pdf, 6)
		for _, c := range cols {
			pdf.CellFormat(c.width, 6, truncate(row[c.name], 30), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if omitted := len(bundle.Rows) - len(capped); omitted > 0 {
		g.ensureSpace(pdf, 8)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(150, 60, 0)
		notice := fmt.Sprintf("%d more records not shown - use the Excel or CSV export for the full dataset.", omitted)
		pdf.CellFormat(0, 8, notice, "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
