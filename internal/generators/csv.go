package generators

import (
	"strings"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// utf8BOM makes Excel open the file as UTF-8 instead of the locale codepage.
const utf8BOM = "\xEF\xBB\xBF"

// CSVGenerator is the fallback of last resort: it has no encoder dependency
// and must keep working when the PDF or Excel encoders are unavailable.
type CSVGenerator struct{}

// NewCSVGenerator creates a CSV generator.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format returns the format this generator produces.
func (g *CSVGenerator) Format() models.ExportFormat {
	return models.FormatCSV
}

// Generate renders the bundle as a BOM-prefixed CSV: one header row from the
// fixed column order, one data row per record. An empty row list fails loudly
// rather than producing a header-only file.
func (g *CSVGenerator) Generate(bundle *models.ExportBundle) (*models.Artifact, error) {
	if len(bundle.Rows) == 0 {
		return nil, models.NewValidationError("no records to export")
	}

	var sb strings.Builder
	sb.WriteString(utf8BOM)

	writeCSVLine(&sb, bundle.Columns)
	for _, row := range bundle.Rows {
		fields := make([]string, len(bundle.Columns))
		for i, col := range bundle.Columns {
			fields[i] = row[col]
		}
		writeCSVLine(&sb, fields)
	}

	return &models.Artifact{
		Filename:    Filename(bundle.Options.ReportName, models.FormatCSV, bundle.GeneratedAt),
		ContentType: models.FormatCSV.ContentType(),
		Data:        []byte(sb.String()),
	}, nil
}

func writeCSVLine(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(escapeCSVField(field))
	}
	sb.WriteString("\r\n")
}

// escapeCSVField quotes a field only when it contains a comma, quote, or
// newline, doubling any embedded quotes.
func escapeCSVField(field string) string {
	if !strings.ContainsAny(field, ",\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ParseCSV splits CSV text back into records using the same quoting rules as
// the writer. Used by tests and the diagnostics round-trip check.
func ParseCSV(text string) [][]string {
	text = strings.TrimPrefix(text, utf8BOM)

	var (
		records  [][]string
		fields   []string
		sb       strings.Builder
		inQuotes bool
	)

	flushField := func() {
		fields = append(fields, sb.String())
		sb.Reset()
	}
	flushRecord := func() {
		flushField()
		records = append(records, fields)
		fields = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inQuotes:
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					sb.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				sb.WriteByte(c)
			}
		case c == '"':
			inQuotes = true
		case c == ',':
			flushField()
		case c == '\r':
			// consumed with the following \n
		case c == '\n':
			flushRecord()
		default:
			sb.WriteByte(c)
		}
	}
	if sb.Len() > 0 || len(fields) > 0 {
		flushRecord()
	}
	return records
}
