package diagnostics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/generators"
	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/models"
	"github.com/thebunny221/smartcms-export/internal/storage/historydb"
	"github.com/thebunny221/smartcms-export/internal/template"
)

type pingSource struct {
	err error
}

func (p *pingSource) FetchComplaints(ctx context.Context, filters models.ExportFilters, role models.Role, ward string, limit int) ([]models.ComplaintRecord, error) {
	return nil, nil
}

func (p *pingSource) Ping(ctx context.Context) error { return p.err }

func writeTemplate(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func fullCapabilities() map[models.ExportFormat]interfaces.Capability {
	return map[models.ExportFormat]interfaces.Capability{
		models.FormatCSV: {Available: true},
		models.FormatPDF: {Available: true},
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	dir := t.TempDir()
	path := writeTemplate(t, dir, "probe.html",
		`<h1>{{appName}}</h1>{{#hasRecords}}<p>{{recordCount}} records</p>{{/hasRecords}}`)

	registry := template.NewRegistry()
	registry.Register("probe", "Probe", path, "diagnostics probe template")

	logger := common.NewSilentLogger()
	history, err := historydb.NewStore(logger, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	return NewRunner(
		registry,
		template.NewLoader(logger),
		&pingSource{},
		history,
		fullCapabilities,
		generators.NewPDFGenerator(0),
		logger,
	)
}

func TestRun_AllHealthy(t *testing.T) {
	runner := newTestRunner(t)
	report := runner.Run(context.Background())

	assert.True(t, report.Healthy)
	require.Len(t, report.Results, 5)
	for _, result := range report.Results {
		assert.Equal(t, models.DiagPass, result.Status, "component %s: %s", result.Component, result.Message)
	}
}

func TestRun_MissingTemplateFails(t *testing.T) {
	runner := newTestRunner(t)
	runner.registry.Register("broken", "Broken", "/nonexistent/broken.html", "")

	report := runner.Run(context.Background())
	assert.False(t, report.Healthy)

	var templates models.DiagnosticResult
	for _, result := range report.Results {
		if result.Component == "templates" {
			templates = result
		}
	}
	assert.Equal(t, models.DiagFail, templates.Status)
	assert.Contains(t, templates.Message, "broken")
}

func TestRun_UnavailableEncoderWarns(t *testing.T) {
	runner := newTestRunner(t)
	runner.capabilities = func() map[models.ExportFormat]interfaces.Capability {
		return map[models.ExportFormat]interfaces.Capability{
			models.FormatCSV: {Available: true},
			models.FormatPDF: {Available: false, Reason: "font pack missing"},
		}
	}

	report := runner.Run(context.Background())
	assert.True(t, report.Healthy, "warnings must not fail the report")

	for _, result := range report.Results {
		if result.Component == "encoders" {
			assert.Equal(t, models.DiagWarn, result.Status)
			assert.Equal(t, "font pack missing", result.Details["pdf"])
		}
	}
}

func TestRun_CMSUnreachableWarns(t *testing.T) {
	runner := newTestRunner(t)
	runner.source = &pingSource{err: errors.New("connection refused")}

	report := runner.Run(context.Background())
	assert.True(t, report.Healthy)

	for _, result := range report.Results {
		if result.Component == "cms" {
			assert.Equal(t, models.DiagWarn, result.Status)
			assert.Contains(t, result.Message, "connection refused")
		}
	}
}

func TestRun_NilDependenciesWarn(t *testing.T) {
	runner := NewRunner(nil, nil, nil, nil, nil, nil, common.NewSilentLogger())
	report := runner.Run(context.Background())

	assert.True(t, report.Healthy)
	require.Len(t, report.Results, 5)
	for _, result := range report.Results {
		assert.Equal(t, models.DiagWarn, result.Status)
	}
}

func TestPDFReadback(t *testing.T) {
	runner := newTestRunner(t)
	result := runner.checkPDFReadback(context.Background())

	require.Equal(t, models.DiagPass, result.Status, result.Message)
	assert.GreaterOrEqual(t, result.Details["pages"], 1)
}
