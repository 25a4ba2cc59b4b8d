package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExportFormat selects the artifact encoder.
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "xlsx"
	FormatPDF   ExportFormat = "pdf"
	FormatHTML  ExportFormat = "html"
)

// ParseFormat normalizes a user-supplied format string.
// Accepts common aliases ("excel" for xlsx).
func ParseFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format '%s'", s)
	}
}

// Ext returns the file extension without the leading dot.
func (f ExportFormat) Ext() string {
	return string(f)
}

// ContentType returns the MIME type for download responses.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// ExportFilters are the caller-visible filter parameters. They scope the CMS
// fetch and participate in the dedup fingerprint. Empty string means "all".
type ExportFilters struct {
	From     string `json:"from,omitempty"` // inclusive date, "2006-01-02"
	To       string `json:"to,omitempty"`   // inclusive date, "2006-01-02"
	Ward     string `json:"ward,omitempty"`
	Type     string `json:"type,omitempty"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Canonical returns a deterministic serialization of the filter set.
// Field order is fixed by the struct definition, so two equal filter sets
// always serialize identically.
func (f ExportFilters) Canonical() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// ExportOptions carries branding, the requesting user's scope, and policy
// limits into the formatters and generators.
type ExportOptions struct {
	AppName    string        `json:"app_name"`
	LogoURL    string        `json:"logo_url,omitempty"`
	IDPrefix   string        `json:"id_prefix,omitempty"`
	ReportName string        `json:"report_name"`
	UserRole   Role          `json:"user_role"`
	Ward       string        `json:"ward,omitempty"` // requester's ward scope, "" = unscoped
	Filters    ExportFilters `json:"filters"`
	MaxRecords int           `json:"max_records"` // role-dependent fetch ceiling
}

// Fingerprint derives the dedup/concurrency key for an export request.
// It hashes the visible request parameters only (role, format, filters) plus
// a one-minute bucket of the request time — not the dataset content, so two
// identical requests inside the same minute collapse onto one in-flight
// export even if the underlying data changed between them.
func Fingerprint(role Role, format ExportFormat, filters ExportFilters, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute).Format("200601021504")
	h := sha256.Sum256([]byte(string(role) + "|" + string(format) + "|" + filters.Canonical() + "|" + bucket))
	return hex.EncodeToString(h[:16])
}

// ExportStatus is the orchestrator state machine status.
type ExportStatus string

const (
	ExportPreparing  ExportStatus = "preparing"
	ExportFetching   ExportStatus = "fetching"
	ExportGenerating ExportStatus = "generating"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s ExportStatus) IsTerminal() bool {
	return s == ExportCompleted || s == ExportFailed
}

// ExportState tracks one in-flight or recently finished export.
// Mutated only by the export coordinator.
type ExportState struct {
	ID          string       `json:"id"`
	Fingerprint string       `json:"fingerprint"`
	Format      ExportFormat `json:"format"`
	Status      ExportStatus `json:"status"`
	Progress    string       `json:"progress"`
	StartTime   time.Time    `json:"start_time"`
	CompletedAt time.Time    `json:"completed_at,omitzero"`
}

// ExportEvent is broadcast over WebSocket on every state transition.
type ExportEvent struct {
	Type      string       `json:"type"` // "export_started", "export_progress", "export_completed", "export_failed"
	State     *ExportState `json:"state"`
	Timestamp time.Time    `json:"timestamp"`
}

// Export event types.
const (
	EventExportStarted   = "export_started"
	EventExportProgress  = "export_progress"
	EventExportCompleted = "export_completed"
	EventExportFailed    = "export_failed"
)

// Artifact is a fully generated download: the export pipeline only produces
// an Artifact after the generator succeeded end-to-end, so a failed export
// never leaves a partial file.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportBundle is the normalized input every format generator consumes:
// flat rows in fixed column order plus derived statistics.
type ExportBundle struct {
	Options     ExportOptions
	Columns     []string
	Rows        []map[string]string
	Stats       *AnalyticsSummary
	GeneratedAt time.Time
}

// ExportRecord is one entry in the persistent export audit history.
type ExportRecord struct {
	ID          string       `json:"id" badgerhold:"key"`
	Fingerprint string       `json:"fingerprint"`
	Format      ExportFormat `json:"format"`
	Role        Role         `json:"role"`
	Ward        string       `json:"ward,omitempty"`
	Filters     string       `json:"filters"` // canonical filter JSON
	Rows        int          `json:"rows"`
	DurationMS  int64        `json:"duration_ms"`
	Outcome     string       `json:"outcome"` // "completed" or "failed"
	Message     string       `json:"message,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
