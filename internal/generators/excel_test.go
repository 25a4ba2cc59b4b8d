package generators

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thebunny221/smartcms-export/internal/models"
	"github.com/thebunny221/smartcms-export/internal/services/formatter"
)

func TestExcelGenerator_Sheets(t *testing.T) {
	bundle := testBundle(nil)

	artifact, err := NewExcelGenerator().Generate(bundle)
	require.NoError(t, err)
	assert.Equal(t, models.FormatExcel.ContentType(), artifact.ContentType)
	assert.Equal(t, "Complaint_Report_2024-02-01.xlsx", artifact.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(artifact.Data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, sheetSummary)
	assert.Contains(t, sheets, sheetRecords)
	assert.Contains(t, sheets, sheetCategories)
	assert.Contains(t, sheets, sheetWards)
	assert.Contains(t, sheets, sheetPriorities)
	assert.Contains(t, sheets, sheetFilters)

	// All Records: header + 3 data rows in fixed column order
	rows, err := f.GetRows(sheetRecords)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, formatter.ColComplaintID, rows[0][0])
	assert.Equal(t, "KSC0001", rows[1][0])

	// Summary holds the total complaint count
	cell, err := f.GetCellValue(sheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, "3", cell)
}

func TestExcelGenerator_NoRecordsSkipsRecordSheet(t *testing.T) {
	bundle := testBundle(nil)
	bundle.Rows = nil
	bundle.Stats = formatter.CalculateStatistics(nil, 72, genNow)

	artifact, err := NewExcelGenerator().Generate(bundle)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(artifact.Data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, sheetSummary)
	assert.Contains(t, sheets, sheetFilters)
	assert.NotContains(t, sheets, sheetRecords)
	assert.NotContains(t, sheets, sheetCategories)
	assert.NotContains(t, sheets, sheetTrends)
}
