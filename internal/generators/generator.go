// Package generators implements the per-format export artifact encoders.
// Every generator consumes the same normalized ExportBundle and is
// independently invocable; a PDF or Excel failure never blocks a CSV retry.
package generators

import (
	"fmt"
	"strings"
	"time"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// Filename builds the deterministic download name: <ReportName>_<ISODate>.<ext>.
// Spaces and path separators in the report name are replaced so the result is
// always a safe single path segment.
func Filename(reportName string, format models.ExportFormat, at time.Time) string {
	name := strings.TrimSpace(reportName)
	if name == "" {
		name = "Complaint_Report"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-")
	name = replacer.Replace(name)
	return fmt.Sprintf("%s_%s.%s", name, at.Format("2006-01-02"), format.Ext())
}

// summaryPairs returns the executive-summary label/value pairs shared by the
// Excel and PDF layouts.
func summaryPairs(stats *models.AnalyticsSummary) [][2]string {
	return [][2]string{
		{"Total Complaints", fmt.Sprintf("%d", stats.Total)},
		{"Resolved", fmt.Sprintf("%d", stats.Resolved)},
		{"Closed", fmt.Sprintf("%d", stats.Closed)},
		{"In Progress", fmt.Sprintf("%d", stats.InProgress)},
		{"Pending", fmt.Sprintf("%d", stats.Pending)},
		{"Reopened", fmt.Sprintf("%d", stats.Reopened)},
		{"Overdue", fmt.Sprintf("%d", stats.Overdue)},
		{"SLA Compliance", fmt.Sprintf("%.1f%%", stats.SLA.CompliancePct)},
		{"Avg Resolution Time", fmt.Sprintf("%.1f hours", stats.SLA.AvgResolutionHours)},
		{"SLA Target", fmt.Sprintf("%d hours", stats.SLA.TargetHours)},
		{"Citizen Satisfaction", fmt.Sprintf("%.1f / 5", stats.Performance.Satisfaction)},
	}
}

// filterPairs returns the applied-filter label/value pairs for audit sheets.
func filterPairs(opts models.ExportOptions) [][2]string {
	orAll := func(s string) string {
		if s == "" {
			return "All"
		}
		return s
	}
	return [][2]string{
		{"Date From", orAll(opts.Filters.From)},
		{"Date To", orAll(opts.Filters.To)},
		{"Ward", orAll(opts.Filters.Ward)},
		{"Type", orAll(opts.Filters.Type)},
		{"Status", orAll(opts.Filters.Status)},
		{"Priority", orAll(opts.Filters.Priority)},
		{"Requested By Role", string(opts.UserRole)},
	}
}
