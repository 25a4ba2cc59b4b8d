package generators

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebunny221/smartcms-export/internal/models"
	"github.com/thebunny221/smartcms-export/internal/services/formatter"
)

var genNow = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

func testBundle(rows []map[string]string) *models.ExportBundle {
	records := []models.ComplaintRecord{
		{
			ComplaintID: "KSC0001", Type: "Roads", Status: models.StatusResolved,
			Priority: models.PriorityHigh, Ward: "W1",
			SubmittedOn: genNow.Add(-72 * time.Hour),
			ResolvedOn:  genNow.Add(-24 * time.Hour),
			Deadline:    genNow.Add(-12 * time.Hour),
		},
		{
			ComplaintID: "KSC0002", Type: "Water Supply", Status: models.StatusInProgress,
			Priority: models.PriorityMedium, Ward: "W2",
			SubmittedOn: genNow.Add(-48 * time.Hour),
			Deadline:    genNow.Add(-1 * time.Hour),
		},
		{
			ComplaintID: "KSC0003", Type: "Lighting", Status: models.StatusInProgress,
			Priority: models.PriorityLow, Ward: "W1",
			SubmittedOn: genNow.Add(-12 * time.Hour),
			Deadline:    genNow.Add(60 * time.Hour),
		},
	}
	opts := models.ExportOptions{
		AppName:    "Smart CMS",
		ReportName: "Complaint Report",
		UserRole:   models.RoleAdministrator,
	}
	bundle := &models.ExportBundle{
		Options:     opts,
		Columns:     formatter.Columns(),
		Stats:       formatter.CalculateStatistics(records, 72, genNow),
		GeneratedAt: genNow,
	}
	if rows != nil {
		bundle.Rows = rows
	} else {
		bundle.Rows = formatter.FormatRecords(records, opts, genNow)
	}
	return bundle
}

func TestCSVGenerator_RoundTrip(t *testing.T) {
	bundle := testBundle(nil)

	artifact, err := NewCSVGenerator().Generate(bundle)
	require.NoError(t, err)

	text := string(artifact.Data)
	assert.True(t, strings.HasPrefix(text, utf8BOM), "expected UTF-8 BOM prefix")

	parsed := ParseCSV(text)
	require.Len(t, parsed, 4, "1 header + 3 data rows")

	// Header order equals the fixed column order
	assert.Equal(t, formatter.Columns(), parsed[0])

	// Second data row is the overdue in-progress complaint
	slaIdx := indexOf(parsed[0], formatter.ColSLAStatus)
	require.GreaterOrEqual(t, slaIdx, 0)
	assert.Equal(t, models.SLAOverdue, parsed[2][slaIdx])
	assert.Equal(t, models.SLAActive, parsed[3][slaIdx])
}

func TestCSVGenerator_QuotingRules(t *testing.T) {
	rows := []map[string]string{{
		formatter.ColComplaintID: "KSC0001",
		formatter.ColDescription: `broken "main" pipe, near park` + "\nsecond line",
		formatter.ColType:        "plain",
	}}
	bundle := testBundle(rows)
	bundle.Columns = []string{formatter.ColComplaintID, formatter.ColDescription, formatter.ColType}

	artifact, err := NewCSVGenerator().Generate(bundle)
	require.NoError(t, err)

	parsed := ParseCSV(string(artifact.Data))
	require.Len(t, parsed, 2)
	assert.Equal(t, `broken "main" pipe, near park`+"\nsecond line", parsed[1][1])
	assert.Equal(t, "plain", parsed[1][2])

	// Unquoted fields stay unquoted in the raw text
	raw := string(artifact.Data)
	assert.Contains(t, raw, "KSC0001,")
	assert.Contains(t, raw, `"broken ""main"" pipe, near park`)
}

func TestCSVGenerator_EmptyRowsFailsLoudly(t *testing.T) {
	bundle := testBundle([]map[string]string{})
	bundle.Rows = nil

	_, err := NewCSVGenerator().Generate(bundle)
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrValidation, ee.Kind)
}

func TestFilename_Deterministic(t *testing.T) {
	at := time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "Complaint_Report_2024-01-31.csv", Filename("Complaint Report", models.FormatCSV, at))
	assert.Equal(t, "Complaint_Report_2024-01-31.xlsx", Filename("", models.FormatExcel, at))
	assert.Equal(t, "Ward-3_Audit_2024-01-31.pdf", Filename(`Ward/3 Audit`, models.FormatPDF, at))
}

func indexOf(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}
