package generators

import (
	"context"

	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/models"
	"github.com/thebunny221/smartcms-export/internal/template"
)

// DefaultHTMLTemplateID is the registry id used when the caller does not
// pick a template.
const DefaultHTMLTemplateID = "complaint-report"

// HTMLGenerator renders the templated HTML report through the in-house
// template engine. Template text comes from the registry + loader, so a
// deployment can restyle reports without touching code.
type HTMLGenerator struct {
	registry   *template.Registry
	loader     interfaces.TemplateLoader
	templateID string
}

// NewHTMLGenerator creates an HTML generator bound to a registry entry.
func NewHTMLGenerator(registry *template.Registry, loader interfaces.TemplateLoader, templateID string) *HTMLGenerator {
	if templateID == "" {
		templateID = DefaultHTMLTemplateID
	}
	return &HTMLGenerator{registry: registry, loader: loader, templateID: templateID}
}

// Format returns the format this generator produces.
func (g *HTMLGenerator) Format() models.ExportFormat {
	return models.FormatHTML
}

// Generate loads the registered template and renders it against the bundle.
func (g *HTMLGenerator) Generate(bundle *models.ExportBundle) (*models.Artifact, error) {
	path, ok := g.registry.Path(g.templateID)
	if !ok {
		// Unregistered id is a deployment configuration error, not retryable
		return nil, models.NewGeneratorError(models.FormatHTML, "HTML template '"+g.templateID+"' is not registered", nil)
	}

	text, err := g.loader.Load(context.Background(), path)
	if err != nil {
		return nil, models.NewTransientError("HTML template could not be loaded", err)
	}

	rendered := template.Render(text, BuildTemplateData(bundle), nil)

	return &models.Artifact{
		Filename:    Filename(bundle.Options.ReportName, models.FormatHTML, bundle.GeneratedAt),
		ContentType: models.FormatHTML.ContentType(),
		Data:        []byte(rendered),
	}, nil
}

// BuildTemplateData flattens an export bundle into the plain nested tree the
// template engine consumes.
func BuildTemplateData(bundle *models.ExportBundle) map[string]any {
	stats := bundle.Stats

	rows := make([]any, len(bundle.Rows))
	for i, row := range bundle.Rows {
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = v
		}
		// Template-friendly aliases for the most used columns
		m["id"] = row["Complaint ID"]
		m["type"] = row["Type"]
		m["status"] = row["Status"]
		m["priority"] = row["Priority"]
		m["ward"] = row["Ward"]
		m["slaStatus"] = row["SLA Status"]
		m["submittedOn"] = row["Submitted On"]
		m["description"] = row["Description"]
		rows[i] = m
	}

	return map[string]any{
		"appName":     bundle.Options.AppName,
		"logoUrl":     bundle.Options.LogoURL,
		"reportName":  bundle.Options.ReportName,
		"generatedAt": bundle.GeneratedAt.Format("2006-01-02 15:04"),
		"role":        string(bundle.Options.UserRole),
		"hasRecords":  len(rows) > 0,
		"recordCount": len(rows),
		"records":     rows,
		"summary": map[string]any{
			"total":      stats.Total,
			"resolved":   stats.Resolved,
			"closed":     stats.Closed,
			"pending":    stats.Pending,
			"inProgress": stats.InProgress,
			"reopened":   stats.Reopened,
			"overdue":    stats.Overdue,
		},
		"sla": map[string]any{
			"compliance": stats.SLA.CompliancePct,
			"avgHours":   stats.SLA.AvgResolutionHours,
			"target":     stats.SLA.TargetHours,
			"onTime":     stats.SLA.OnTime,
			"breached":   stats.SLA.Breached,
		},
		"categories": bucketsToTree(stats.Categories),
		"wards":      bucketsToTree(stats.Wards),
		"priorities": bucketsToTree(stats.Priorities),
		"filters": map[string]any{
			"from":     bundle.Options.Filters.From,
			"to":       bundle.Options.Filters.To,
			"ward":     bundle.Options.Filters.Ward,
			"type":     bundle.Options.Filters.Type,
			"status":   bundle.Options.Filters.Status,
			"priority": bundle.Options.Filters.Priority,
		},
	}
}

func bucketsToTree(buckets []models.BucketStat) []any {
	out := make([]any, len(buckets))
	for i, b := range buckets {
		out[i] = map[string]any{
			"name":       b.Name,
			"count":      b.Count,
			"resolved":   b.Resolved,
			"avgHours":   b.AvgResolutionHours,
			"efficiency": b.Efficiency,
		}
	}
	return out
}
