package generators

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// Sheet names in the workbook.
const (
	sheetSummary    = "Executive Summary"
	sheetRecords    = "All Records"
	sheetPriorities = "Priority Breakdown"
	sheetCategories = "Category Breakdown"
	sheetWards      = "Ward Breakdown"
	sheetTrends     = "Trends"
	sheetFilters    = "Filters Applied"
)

// ExcelGenerator builds a multi-sheet workbook via excelize. Breakdown
// sheets are only added when the corresponding data exists.
type ExcelGenerator struct{}

// NewExcelGenerator creates an Excel generator.
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Format returns the format this generator produces.
func (g *ExcelGenerator) Format() models.ExportFormat {
	return models.FormatExcel
}

// Probe verifies the workbook encoder can produce output in this process.
func (g *ExcelGenerator) Probe() error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", "probe"); err != nil {
		return err
	}
	_, err := f.WriteToBuffer()
	return err
}

// Generate renders the workbook. The Executive Summary sheet is always
// present; All Records only when there is per-record data.
func (g *ExcelGenerator) Generate(bundle *models.ExportBundle) (artifact *models.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact = nil
			err = models.NewGeneratorError(models.FormatExcel, "Excel generation failed", fmt.Errorf("panic: %v", r))
		}
	}()

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E79"}},
	})
	if err != nil {
		return nil, models.NewGeneratorError(models.FormatExcel, "Excel generation failed", err)
	}

	if err := g.writeSummarySheet(f, bundle, headerStyle); err != nil {
		return nil, models.NewGeneratorError(models.FormatExcel, "Excel generation failed", err)
	}

	if len(bundle.Rows) > 0 {
		if err := g.writeRecordsSheet(f, bundle, headerStyle); err != nil {
			return nil, models.NewGeneratorError(models.FormatExcel, "Excel generation failed", err)
		}
	}

	stats := bundle.Stats
	breakdowns := []struct {
		sheet   string
		buckets []models.BucketStat
	}{
		{sheetPriorities, stats.Priorities},
		{sheetCategories, stats.Categories},
		{sheetWards, stats.Wards},
	}
	for _, bd := range breakdowns {
		if len(bd.buckets) == 0 {
			continue
		}
		if err := g.writeBreakdownSheet(f, bd.sheet, bd.buckets, headerStyle); err != nil {
			return nil, models.NewGeneratorError(models.FormatExcel, "Excel generation failed", err)
		}
	}

	if len(stats.Trend) > 0 {
		if err := g.writeTrendSheet(f, stats.Trend, headerStyle); err != nil {
			return nil, models.NewGeneratorError(models.FormatExcel, "Excel generation failed", err)
		}
	}

	if err := g.writeFiltersSheet(f, bundle, headerStyle); err != nil {
		return nil, models.NewGeneratorError(models.FormatExcel, "Excel generation failed", err)
	}

	// The default sheet was renamed to the summary; make it active
	if idx, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, models.NewGeneratorError(models.FormatExcel, "Excel generation failed", err)
	}

	return &models.Artifact{
		Filename:    Filename(bundle.Options.ReportName, models.FormatExcel, bundle.GeneratedAt),
		ContentType: models.FormatExcel.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func (g *ExcelGenerator) writeSummarySheet(f *excelize.File, bundle *models.ExportBundle, headerStyle int) error {
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}

	f.SetCellValue(sheetSummary, "A1", bundle.Options.AppName+" — "+bundle.Options.ReportName)
	f.SetCellValue(sheetSummary, "A2", "Generated "+bundle.GeneratedAt.Format("2006-01-02 15:04"))
	f.SetCellStyle(sheetSummary, "A1", "A1", headerStyle)

	row := 4
	for _, pair := range summaryPairs(bundle.Stats) {
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), pair[0])
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), pair[1])
		row++
	}

	f.SetColWidth(sheetSummary, "A", "A", 28)
	f.SetColWidth(sheetSummary, "B", "B", 22)
	return nil
}

func (g *ExcelGenerator) writeRecordsSheet(f *excelize.File, bundle *models.ExportBundle, headerStyle int) error {
	if _, err := f.NewSheet(sheetRecords); err != nil {
		return err
	}

	for i, col := range bundle.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetRecords, cell, col)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(bundle.Columns), 1)
	f.SetCellStyle(sheetRecords, "A1", lastHeader, headerStyle)

	for r, row := range bundle.Rows {
		for c, col := range bundle.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetRecords, cell, row[col])
		}
	}

	// Fixed widths: wide for description, medium for everything else
	f.SetColWidth(sheetRecords, "A", "A", 14)
	f.SetColWidth(sheetRecords, "B", "B", 18)
	f.SetColWidth(sheetRecords, "C", "C", 48)
	endCol, _ := excelize.ColumnNumberToName(len(bundle.Columns))
	f.SetColWidth(sheetRecords, "D", endCol, 18)
	return nil
}

func (g *ExcelGenerator) writeBreakdownSheet(f *excelize.File, sheet string, buckets []models.BucketStat, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Name", "Count", "Resolved", "Avg Resolution (h)", "Efficiency %"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	f.SetCellStyle(sheet, "A1", "E1", headerStyle)

	for i, b := range buckets {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), b.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), b.Count)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), b.Resolved)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), b.AvgResolutionHours)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), b.Efficiency)
	}

	f.SetColWidth(sheet, "A", "A", 26)
	f.SetColWidth(sheet, "B", "E", 18)
	return nil
}

func (g *ExcelGenerator) writeTrendSheet(f *excelize.File, trend []models.TrendPoint, headerStyle int) error {
	if _, err := f.NewSheet(sheetTrends); err != nil {
		return err
	}

	headers := []string{"Month", "Submitted", "Resolved"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetTrends, cell, h)
	}
	f.SetCellStyle(sheetTrends, "A1", "C1", headerStyle)

	for i, tp := range trend {
		row := i + 2
		f.SetCellValue(sheetTrends, fmt.Sprintf("A%d", row), tp.Month)
		f.SetCellValue(sheetTrends, fmt.Sprintf("B%d", row), tp.Submitted)
		f.SetCellValue(sheetTrends, fmt.Sprintf("C%d", row), tp.Resolved)
	}

	f.SetColWidth(sheetTrends, "A", "C", 14)
	return nil
}

func (g *ExcelGenerator) writeFiltersSheet(f *excelize.File, bundle *models.ExportBundle, headerStyle int) error {
	if _, err := f.NewSheet(sheetFilters); err != nil {
		return err
	}

	f.SetCellValue(sheetFilters, "A1", "Filter")
	f.SetCellValue(sheetFilters, "B1", "Value")
	f.SetCellStyle(sheetFilters, "A1", "B1", headerStyle)

	for i, pair := range filterPairs(bundle.Options) {
		row := i + 2
		f.SetCellValue(sheetFilters, fmt.Sprintf("A%d", row), pair[0])
		f.SetCellValue(sheetFilters, fmt.Sprintf("B%d", row), pair[1])
	}

	f.SetColWidth(sheetFilters, "A", "B", 24)
	return nil
}
