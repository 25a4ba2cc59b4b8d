// Package interfaces defines service contracts for the export service
package interfaces

import (
	"context"
	"time"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// ComplaintSource fetches role/ward-scoped complaint snapshots from the CMS.
// Implementations must enforce the fetch timeout ceiling and map 401/403
// responses to permission errors before the data reaches any formatter.
type ComplaintSource interface {
	// FetchComplaints returns complaints matching the filters, capped at limit.
	FetchComplaints(ctx context.Context, filters models.ExportFilters, role models.Role, ward string, limit int) ([]models.ComplaintRecord, error)

	// Ping checks reachability of the CMS endpoint (used by diagnostics).
	Ping(ctx context.Context) error
}

// Generator produces one export artifact format from a normalized bundle.
// Generators are pure with respect to the orchestrator: they never touch the
// coordinator's maps and only see a deep-cloned dataset.
type Generator interface {
	// Format returns the format this generator produces.
	Format() models.ExportFormat

	// Generate renders the bundle into a complete artifact, or fails with no
	// partial output.
	Generate(bundle *models.ExportBundle) (*models.Artifact, error)
}

// Capability reports whether a format's encoder is usable in this process.
type Capability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ExportRequest is one caller request for an export artifact.
type ExportRequest struct {
	Format     models.ExportFormat
	Filters    models.ExportFilters
	ReportName string
	Role       models.Role
	Ward       string
}

// ExportService orchestrates the full export pipeline.
type ExportService interface {
	// Export runs permission validation, fetch, generation, and delivery for
	// one request. Duplicate in-flight requests are rejected with a
	// concurrency error; all failures carry a models.ExportError.
	Export(ctx context.Context, req ExportRequest) (*models.Artifact, error)

	// Status returns the state record for an export id.
	Status(id string) (*models.ExportState, bool)

	// Active returns all current state records, newest first.
	Active() []*models.ExportState

	// Cancel removes an in-flight export by fingerprint. Best effort: work
	// already inside the fetch or generator call is not interrupted.
	Cancel(fingerprint string) bool

	// Capabilities reports per-format encoder availability.
	Capabilities() map[models.ExportFormat]Capability
}

// HistoryStore persists the export audit trail.
type HistoryStore interface {
	Append(ctx context.Context, rec *models.ExportRecord) error
	List(ctx context.Context, limit int) ([]*models.ExportRecord, error)
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// TemplateLoader fetches template text by path, caching by path.
type TemplateLoader interface {
	Load(ctx context.Context, path string) (string, error)
	ClearCache()
}
