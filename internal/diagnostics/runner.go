// Package diagnostics runs self-checks over the export subsystem: template
// loadability, encoder capabilities, PDF readback, the history store, and
// CMS reachability.
package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/generators"
	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/models"
	"github.com/thebunny221/smartcms-export/internal/services/formatter"
	"github.com/thebunny221/smartcms-export/internal/template"
)

// Runner executes the self-check suite. Any dependency may be nil, in which
// case its check reports a warning instead of failing the whole report.
type Runner struct {
	registry     *template.Registry
	loader       interfaces.TemplateLoader
	source       interfaces.ComplaintSource
	history      interfaces.HistoryStore
	capabilities func() map[models.ExportFormat]interfaces.Capability
	pdfGen       *generators.PDFGenerator
	logger       *common.Logger
}

// NewRunner creates a diagnostics runner.
func NewRunner(
	registry *template.Registry,
	loader interfaces.TemplateLoader,
	source interfaces.ComplaintSource,
	history interfaces.HistoryStore,
	capabilities func() map[models.ExportFormat]interfaces.Capability,
	pdfGen *generators.PDFGenerator,
	logger *common.Logger,
) *Runner {
	return &Runner{
		registry:     registry,
		loader:       loader,
		source:       source,
		history:      history,
		capabilities: capabilities,
		pdfGen:       pdfGen,
		logger:       logger,
	}
}

// Run executes every check and aggregates the report.
func (r *Runner) Run(ctx context.Context) *models.DiagnosticReport {
	report := &models.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		Healthy:     true,
	}

	checks := []func(context.Context) models.DiagnosticResult{
		r.checkTemplates,
		r.checkCapabilities,
		r.checkPDFReadback,
		r.checkHistory,
		r.checkCMS,
	}
	for _, check := range checks {
		result := check(ctx)
		report.Results = append(report.Results, result)
		if result.Status == models.DiagFail {
			report.Healthy = false
		}
	}

	r.logger.Info().
		Bool("healthy", report.Healthy).
		Int("checks", len(report.Results)).
		Msg("Diagnostics completed")
	return report
}

// checkTemplates loads and renders every registered template with a probe
// dataset and verifies no placeholder tokens survive.
func (r *Runner) checkTemplates(ctx context.Context) models.DiagnosticResult {
	if r.registry == nil || r.loader == nil {
		return models.DiagnosticResult{Component: "templates", Status: models.DiagWarn, Message: "template registry not configured"}
	}

	data := generators.BuildTemplateData(probeBundle())
	details := map[string]any{}
	for _, info := range r.registry.All() {
		text, err := r.loader.Load(ctx, info.Path)
		if err != nil {
			return models.DiagnosticResult{
				Component: "templates",
				Status:    models.DiagFail,
				Message:   fmt.Sprintf("template '%s' failed to load: %v", info.ID, err),
			}
		}
		rendered := template.Render(text, data, nil)
		if strings.Contains(rendered, "{{") {
			return models.DiagnosticResult{
				Component: "templates",
				Status:    models.DiagFail,
				Message:   fmt.Sprintf("template '%s' rendered with unresolved placeholders", info.ID),
			}
		}
		details[info.ID] = fmt.Sprintf("%d bytes", len(rendered))
	}
	return models.DiagnosticResult{
		Component: "templates",
		Status:    models.DiagPass,
		Message:   fmt.Sprintf("%d templates load and render", len(details)),
		Details:   details,
	}
}

// checkCapabilities reports encoder availability; any unavailable format is
// a warning since CSV always remains usable.
func (r *Runner) checkCapabilities(_ context.Context) models.DiagnosticResult {
	if r.capabilities == nil {
		return models.DiagnosticResult{Component: "encoders", Status: models.DiagWarn, Message: "capability probe not configured"}
	}

	caps := r.capabilities()
	details := map[string]any{}
	unavailable := 0
	for format, capability := range caps {
		if capability.Available {
			details[string(format)] = "available"
			continue
		}
		unavailable++
		details[string(format)] = capability.Reason
	}
	if unavailable > 0 {
		return models.DiagnosticResult{
			Component: "encoders",
			Status:    models.DiagWarn,
			Message:   fmt.Sprintf("%d of %d encoders unavailable", unavailable, len(caps)),
			Details:   details,
		}
	}
	return models.DiagnosticResult{
		Component: "encoders",
		Status:    models.DiagPass,
		Message:   fmt.Sprintf("all %d encoders available", len(caps)),
		Details:   details,
	}
}

// checkPDFReadback generates a probe PDF and parses it back, verifying the
// document is both writable and structurally readable.
func (r *Runner) checkPDFReadback(_ context.Context) models.DiagnosticResult {
	if r.pdfGen == nil {
		return models.DiagnosticResult{Component: "pdf_readback", Status: models.DiagWarn, Message: "PDF generator not configured"}
	}

	artifact, err := r.pdfGen.Generate(probeBundle())
	if err != nil {
		return models.DiagnosticResult{
			Component: "pdf_readback",
			Status:    models.DiagFail,
			Message:   fmt.Sprintf("probe PDF generation failed: %v", err),
		}
	}

	reader, err := pdf.NewReader(bytes.NewReader(artifact.Data), int64(len(artifact.Data)))
	if err != nil {
		return models.DiagnosticResult{
			Component: "pdf_readback",
			Status:    models.DiagFail,
			Message:   fmt.Sprintf("generated PDF failed to parse: %v", err),
		}
	}
	pages := reader.NumPage()
	if pages < 1 {
		return models.DiagnosticResult{
			Component: "pdf_readback",
			Status:    models.DiagFail,
			Message:   "generated PDF has no pages",
		}
	}
	return models.DiagnosticResult{
		Component: "pdf_readback",
		Status:    models.DiagPass,
		Message:   "probe PDF generated and parsed",
		Details:   map[string]any{"pages": pages, "bytes": len(artifact.Data)},
	}
}

// checkHistory writes and reads back one throwaway audit record.
func (r *Runner) checkHistory(ctx context.Context) models.DiagnosticResult {
	if r.history == nil {
		return models.DiagnosticResult{Component: "history", Status: models.DiagWarn, Message: "history store not configured"}
	}

	probe := &models.ExportRecord{
		ID:        "diag-" + uuid.New().String(),
		Format:    models.FormatCSV,
		Role:      models.RoleAdministrator,
		Filters:   "{}",
		Outcome:   "completed",
		Message:   "diagnostics probe",
		CreatedAt: time.Now(),
	}
	if err := r.history.Append(ctx, probe); err != nil {
		return models.DiagnosticResult{
			Component: "history",
			Status:    models.DiagFail,
			Message:   fmt.Sprintf("history write failed: %v", err),
		}
	}
	records, err := r.history.List(ctx, 1)
	if err != nil || len(records) == 0 {
		return models.DiagnosticResult{
			Component: "history",
			Status:    models.DiagFail,
			Message:   fmt.Sprintf("history readback failed: %v", err),
		}
	}
	return models.DiagnosticResult{
		Component: "history",
		Status:    models.DiagPass,
		Message:   "history store round-trip ok",
	}
}

// checkCMS pings the complaint-management API. Unreachable is a warning,
// not a failure: exports degrade, the service itself is still healthy.
func (r *Runner) checkCMS(ctx context.Context) models.DiagnosticResult {
	if r.source == nil {
		return models.DiagnosticResult{Component: "cms", Status: models.DiagWarn, Message: "CMS client not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.source.Ping(pingCtx); err != nil {
		return models.DiagnosticResult{
			Component: "cms",
			Status:    models.DiagWarn,
			Message:   fmt.Sprintf("CMS unreachable: %v", err),
		}
	}
	return models.DiagnosticResult{
		Component: "cms",
		Status:    models.DiagPass,
		Message:   "CMS reachable",
	}
}

// probeBundle builds a small deterministic dataset for render checks.
func probeBundle() *models.ExportBundle {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	records := []models.ComplaintRecord{
		{
			ID: "diag-1", ComplaintID: "KSC0001", Type: "Water Supply",
			Description: "diagnostics probe", Status: models.StatusResolved,
			Priority: models.PriorityHigh, Ward: "Ward 1",
			SubmittedOn: now.Add(-72 * time.Hour), ResolvedOn: now.Add(-24 * time.Hour),
			Deadline: now.Add(-12 * time.Hour), Rating: 4,
		},
		{
			ID: "diag-2", ComplaintID: "KSC0002", Type: "Roads",
			Description: "diagnostics probe", Status: models.StatusInProgress,
			Priority: models.PriorityMedium, Ward: "Ward 2",
			SubmittedOn: now.Add(-48 * time.Hour), Deadline: now.Add(24 * time.Hour),
		},
	}
	opts := models.ExportOptions{
		AppName:    "diagnostics",
		ReportName: "Diagnostics Probe",
		UserRole:   models.RoleAdministrator,
	}
	return &models.ExportBundle{
		Options:     opts,
		Columns:     formatter.Columns(),
		Rows:        formatter.FormatRecords(records, opts, now),
		Stats:       formatter.CalculateStatistics(records, 72, now),
		GeneratedAt: now,
	}
}
