package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/models"
)

var errFontPackMissing = errors.New("font pack missing")

// stubSource returns a canned dataset and counts fetches.
type stubSource struct {
	mu      sync.Mutex
	records []models.ComplaintRecord
	err     error
	fetches int
}

func (s *stubSource) FetchComplaints(ctx context.Context, filters models.ExportFilters, role models.Role, ward string, limit int) ([]models.ComplaintRecord, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *stubSource) Ping(ctx context.Context) error { return nil }

func (s *stubSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// stubGenerator renders a fixed payload or fails on demand.
type stubGenerator struct {
	format   models.ExportFormat
	err      error
	probeErr error
	block    chan struct{} // when set, Generate waits until closed
}

func (g *stubGenerator) Format() models.ExportFormat { return g.format }

func (g *stubGenerator) Probe() error { return g.probeErr }

func (g *stubGenerator) Generate(bundle *models.ExportBundle) (*models.Artifact, error) {
	if g.block != nil {
		<-g.block
	}
	if g.err != nil {
		return nil, g.err
	}
	return &models.Artifact{
		Filename:    "report.csv",
		ContentType: g.format.ContentType(),
		Data:        []byte("payload"),
	}, nil
}

func sampleRecords() []models.ComplaintRecord {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return []models.ComplaintRecord{
		{ID: "c-1", ComplaintID: "KSC0001", Type: "Water Supply", Status: models.StatusResolved,
			Priority: models.PriorityHigh, Ward: "Ward 1", SubmittedOn: base,
			ResolvedOn: base.Add(20 * time.Hour), Deadline: base.Add(72 * time.Hour)},
		{ID: "c-2", ComplaintID: "KSC0002", Type: "Roads", Status: models.StatusInProgress,
			Priority: models.PriorityMedium, Ward: "Ward 2", SubmittedOn: base.Add(time.Hour)},
	}
}

func newTestService(t *testing.T, source interfaces.ComplaintSource, gens ...interfaces.Generator) *Service {
	t.Helper()
	if len(gens) == 0 {
		gens = []interfaces.Generator{&stubGenerator{format: models.FormatCSV}}
	}
	cfg := common.NewDefaultConfig()
	svc := NewService(source, gens, nil, cfg, common.NewSilentLogger())
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.coordinator.SetClock(svc.now)
	return svc
}

func adminRequest(format models.ExportFormat) interfaces.ExportRequest {
	return interfaces.ExportRequest{
		Format:     format,
		Filters:    models.ExportFilters{Ward: "Ward 1"},
		ReportName: "Complaint Report",
		Role:       models.RoleAdministrator,
	}
}

func TestExport_Success(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	svc := newTestService(t, source)

	artifact, err := svc.Export(context.Background(), adminRequest(models.FormatCSV))
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, []byte("payload"), artifact.Data)
	assert.Equal(t, 1, source.fetchCount())

	// Terminal state is pollable afterwards.
	active := svc.Active()
	require.Len(t, active, 1)
	assert.Equal(t, models.ExportCompleted, active[0].Status)
}

func TestExport_RoleNotAllowListed(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	svc := newTestService(t, source)

	req := adminRequest(models.FormatCSV)
	req.Role = models.RoleCitizen
	_, err := svc.Export(context.Background(), req)
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrPermission, ee.Kind)

	// Rejected before any network traffic or state registration.
	assert.Equal(t, 0, source.fetchCount())
	assert.Empty(t, svc.Active())
}

func TestExport_EmptyDatasetFailsValidation(t *testing.T) {
	source := &stubSource{records: nil}
	svc := newTestService(t, source)

	_, err := svc.Export(context.Background(), adminRequest(models.FormatCSV))
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrValidation, ee.Kind)

	active := svc.Active()
	require.Len(t, active, 1)
	assert.Equal(t, models.ExportFailed, active[0].Status)
}

func TestExport_DuplicateInFlightRejected(t *testing.T) {
	gate := make(chan struct{})
	gen := &stubGenerator{format: models.FormatCSV, block: gate}
	source := &stubSource{records: sampleRecords()}
	svc := newTestService(t, source, gen)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Export(context.Background(), adminRequest(models.FormatCSV))
		firstErr <- err
	}()

	// Wait for the first export to claim its fingerprint slot.
	require.Eventually(t, func() bool {
		return len(svc.Active()) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := svc.Export(context.Background(), adminRequest(models.FormatCSV))
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrConcurrency, ee.Kind)
	assert.Equal(t, 1, source.fetchCount())

	close(gate)
	require.NoError(t, <-firstErr)

	// After completion the same request is admitted again.
	_, err = svc.Export(context.Background(), adminRequest(models.FormatCSV))
	assert.NoError(t, err)
}

func TestExport_GeneratorFailureSuggestsCSV(t *testing.T) {
	gen := &stubGenerator{
		format: models.FormatExcel,
		err:    models.NewGeneratorError(models.FormatExcel, "workbook assembly failed", nil),
	}
	source := &stubSource{records: sampleRecords()}
	svc := newTestService(t, source, gen, &stubGenerator{format: models.FormatCSV})

	_, err := svc.Export(context.Background(), adminRequest(models.FormatExcel))
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrGenerator, ee.Kind)
	assert.Contains(t, ee.Message, "CSV")
}

func TestExport_FetchErrorPropagates(t *testing.T) {
	source := &stubSource{err: models.NewTransientError("CMS data fetch timed out", nil)}
	svc := newTestService(t, source)

	_, err := svc.Export(context.Background(), adminRequest(models.FormatCSV))
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrTransient, ee.Kind)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	svc := newTestService(t, &stubSource{records: sampleRecords()})

	req := adminRequest(models.FormatPDF) // no PDF generator registered
	_, err := svc.Export(context.Background(), req)
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrValidation, ee.Kind)
}

func TestCancel_InFlightExport(t *testing.T) {
	gate := make(chan struct{})
	gen := &stubGenerator{format: models.FormatCSV, block: gate}
	source := &stubSource{records: sampleRecords()}
	svc := newTestService(t, source, gen)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Export(context.Background(), adminRequest(models.FormatCSV))
		done <- err
	}()

	require.Eventually(t, func() bool {
		active := svc.Active()
		return len(active) == 1 && active[0].Status == models.ExportGenerating
	}, time.Second, 5*time.Millisecond)

	fingerprint := svc.Active()[0].Fingerprint
	assert.True(t, svc.Cancel(fingerprint))
	assert.False(t, svc.Cancel(fingerprint))

	close(gate)
	err := <-done
	require.Error(t, err)

	active := svc.Active()
	require.Len(t, active, 1)
	assert.Equal(t, models.ExportFailed, active[0].Status)
}

func TestCapabilities_CSVAlwaysAvailable(t *testing.T) {
	svc := newTestService(t, &stubSource{records: sampleRecords()},
		&stubGenerator{format: models.FormatCSV},
		&stubGenerator{format: models.FormatPDF, probeErr: errFontPackMissing},
	)

	caps := svc.Capabilities()
	require.Contains(t, caps, models.FormatCSV)
	assert.True(t, caps[models.FormatCSV].Available)

	require.Contains(t, caps, models.FormatPDF)
	assert.False(t, caps[models.FormatPDF].Available)
	assert.Contains(t, caps[models.FormatPDF].Reason, "font pack missing")
}

func TestExport_UnavailableEncoderRejectedUpFront(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	svc := newTestService(t, source,
		&stubGenerator{format: models.FormatCSV},
		&stubGenerator{format: models.FormatPDF, probeErr: errFontPackMissing},
	)
	svc.Capabilities() // force probes

	_, err := svc.Export(context.Background(), adminRequest(models.FormatPDF))
	require.Error(t, err)
	ee := models.AsExportError(err)
	require.NotNil(t, ee)
	assert.Equal(t, models.ErrTransient, ee.Kind)
	assert.Contains(t, ee.Message, "CSV")
	assert.Equal(t, 0, source.fetchCount())
}
