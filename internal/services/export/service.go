package export

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/interfaces"
	"github.com/thebunny221/smartcms-export/internal/models"
	"github.com/thebunny221/smartcms-export/internal/services/formatter"
)

// Service runs the export pipeline end to end. One Export call walks the
// state machine preparing -> fetching -> generating -> completed/failed;
// the coordinator guards admission and the hub mirrors every transition to
// connected WebSocket clients.
type Service struct {
	source      interfaces.ComplaintSource
	generators  map[models.ExportFormat]interfaces.Generator
	coordinator *Coordinator
	capability  *capabilityProbe
	history     interfaces.HistoryStore
	hub         *ExportWSHub
	config      *common.Config
	logger      *common.Logger

	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the export service. The history store may be nil, in
// which case the audit trail is skipped.
func NewService(
	source interfaces.ComplaintSource,
	generators []interfaces.Generator,
	history interfaces.HistoryStore,
	config *common.Config,
	logger *common.Logger,
) *Service {
	byFormat := make(map[models.ExportFormat]interfaces.Generator, len(generators))
	for _, g := range generators {
		byFormat[g.Format()] = g
	}
	return &Service{
		source:      source,
		generators:  byFormat,
		coordinator: NewCoordinator(logger),
		capability:  newCapabilityProbe(byFormat),
		history:     history,
		hub:         NewExportWSHub(logger),
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// Coordinator exposes the state registry (tests and diagnostics).
func (s *Service) Coordinator() *Coordinator {
	return s.coordinator
}

// Hub returns the WebSocket hub for handler registration.
func (s *Service) Hub() *ExportWSHub {
	return s.hub
}

// safeGo launches a goroutine with panic recovery and logging.
func (s *Service) safeGo(name string, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in export service goroutine")
			}
		}()
		fn()
	}()
}

// Start launches the WebSocket hub and the stuck-export sweep loop.
// Safe to call multiple times. Stops any existing loops before starting.
func (s *Service) Start() {
	if s.cancel != nil {
		s.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.safeGo("websocket-hub", func() { s.hub.Run() })
	s.safeGo("sweeper", func() { s.sweepLoop(ctx) })

	s.logger.Info().
		Str("sweep_interval", s.config.Export.SweepInterval).
		Str("stuck_threshold", s.config.Export.StuckThreshold).
		Msg("Export service started")
}

// Stop cancels the sweep loop and waits for in-flight goroutines.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.hub.Stop()
	s.wg.Wait()
	s.logger.Info().Msg("Export service stopped")
}

// sweepLoop periodically abandons stuck exports and evicts expired terminal
// states so a crashed pipeline goroutine can never hold a fingerprint slot
// forever. It also prunes audit records past the history retention window,
// at most once an hour.
func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Export.GetSweepInterval())
	defer ticker.Stop()

	var lastPrune time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			failed := s.coordinator.Sweep(
				s.config.Export.GetStuckThreshold(),
				s.config.Export.GetCompletedRetention(),
			)
			for _, st := range failed {
				s.broadcast(models.EventExportFailed, st)
			}

			if s.history != nil && s.now().Sub(lastPrune) >= time.Hour {
				lastPrune = s.now()
				cutoff := s.now().Add(-s.config.History.GetRetention())
				if _, err := s.history.Prune(ctx, cutoff); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to prune export history")
				}
			}
		}
	}
}

// Export runs the full pipeline for one request.
func (s *Service) Export(ctx context.Context, req interfaces.ExportRequest) (*models.Artifact, error) {
	gen, ok := s.generators[req.Format]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unsupported export format '%s'", req.Format))
	}

	// Role gate comes before any network traffic or state registration so a
	// forbidden role costs nothing.
	if !s.config.Export.RoleAllowed(string(req.Role)) {
		return nil, models.NewPermissionError("you do not have permission to export reports")
	}

	if capability := s.capability.Available(req.Format); !capability.Available {
		return nil, models.NewTransientError(
			fmt.Sprintf("the %s encoder is not available (%s) - try the CSV export instead", req.Format, capability.Reason), nil)
	}

	fingerprint := models.Fingerprint(req.Role, req.Format, req.Filters, s.now())
	state, err := s.coordinator.Begin(fingerprint, req.Format)
	if err != nil {
		return nil, err
	}
	s.broadcast(models.EventExportStarted, state)

	start := s.now()
	artifact, rows, err := s.run(ctx, req, gen, state.ID)
	durationMS := s.now().Sub(start).Milliseconds()

	if err != nil {
		reason := "Export failed"
		if ee := models.AsExportError(err); ee != nil {
			reason = ee.Message
		}
		if st := s.coordinator.Fail(state.ID, reason); st != nil {
			s.broadcast(models.EventExportFailed, st)
		}
		s.audit(req, fingerprint, rows, durationMS, "failed", reason)
		s.logger.Warn().
			Str("export_id", state.ID).
			Str("format", string(req.Format)).
			Str("role", string(req.Role)).
			Int64("duration_ms", durationMS).
			Err(err).
			Msg("Export failed")
		return nil, err
	}

	if st := s.coordinator.Complete(state.ID); st != nil {
		s.broadcast(models.EventExportCompleted, st)
	} else {
		// Cancelled or swept while generating. The artifact is complete but
		// the caller already saw a terminal failure, so drop it.
		return nil, models.NewTransientError("export was cancelled before delivery", nil)
	}
	s.audit(req, fingerprint, rows, durationMS, "completed", "")

	s.logger.Info().
		Str("export_id", state.ID).
		Str("format", string(req.Format)).
		Str("role", string(req.Role)).
		Int("rows", rows).
		Int("bytes", len(artifact.Data)).
		Int64("duration_ms", durationMS).
		Msg("Export completed")

	return artifact, nil
}

// run executes fetch, format, and generate for an admitted export.
func (s *Service) run(ctx context.Context, req interfaces.ExportRequest, gen interfaces.Generator, id string) (*models.Artifact, int, error) {
	if st := s.coordinator.Transition(id, models.ExportFetching, "Fetching complaint data"); st != nil {
		s.broadcast(models.EventExportProgress, st)
	} else {
		return nil, 0, models.NewTransientError("export was cancelled", nil)
	}

	limit := s.config.Export.MaxRecordsForRole(string(req.Role))
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.CMS.GetTimeout())
	defer cancel()

	records, err := s.source.FetchComplaints(fetchCtx, req.Filters, req.Role, req.Ward, limit)
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, models.NewValidationError("no complaints match the selected filters - nothing to export")
	}

	if st := s.coordinator.Transition(id, models.ExportGenerating, fmt.Sprintf("Generating %s report", req.Format)); st != nil {
		s.broadcast(models.EventExportProgress, st)
	} else {
		return nil, len(records), models.NewTransientError("export was cancelled", nil)
	}

	// Generators only ever see a clone of the fetched snapshot.
	records = models.CloneRecords(records)

	opts := models.ExportOptions{
		AppName:    s.config.Export.AppName,
		LogoURL:    s.config.Export.LogoURL,
		IDPrefix:   s.config.Export.IDPrefix,
		ReportName: req.ReportName,
		UserRole:   req.Role,
		Ward:       req.Ward,
		Filters:    req.Filters,
		MaxRecords: limit,
	}
	now := s.now()
	bundle := &models.ExportBundle{
		Options:     opts,
		Columns:     formatter.Columns(),
		Rows:        formatter.FormatRecords(records, opts, now),
		Stats:       formatter.CalculateStatistics(records, s.config.Export.SLATargetHours, now),
		GeneratedAt: now,
	}

	artifact, err := gen.Generate(bundle)
	if err != nil {
		if ee := models.AsExportError(err); ee != nil && ee.Kind == models.ErrGenerator && req.Format != models.FormatCSV {
			ee.Message = ee.Message + " - try the CSV export instead"
			return nil, len(records), ee
		}
		return nil, len(records), err
	}
	return artifact, len(records), nil
}

// Status returns the state record for an export id.
func (s *Service) Status(id string) (*models.ExportState, bool) {
	return s.coordinator.Get(id)
}

// Active returns all current state records, newest first.
func (s *Service) Active() []*models.ExportState {
	return s.coordinator.Active()
}

// Cancel removes an in-flight export by fingerprint.
func (s *Service) Cancel(fingerprint string) bool {
	st, ok := s.coordinator.CancelFingerprint(fingerprint)
	if ok {
		s.broadcast(models.EventExportFailed, st)
	}
	return ok
}

// Capabilities reports per-format encoder availability.
func (s *Service) Capabilities() map[models.ExportFormat]interfaces.Capability {
	return s.capability.Capabilities()
}

func (s *Service) broadcast(eventType string, state *models.ExportState) {
	s.hub.Broadcast(models.ExportEvent{
		Type:      eventType,
		State:     state,
		Timestamp: s.now(),
	})
}

// audit appends one record to the export history. Audit failures are logged
// and swallowed: the artifact still ships.
func (s *Service) audit(req interfaces.ExportRequest, fingerprint string, rows int, durationMS int64, outcome, message string) {
	if s.history == nil {
		return
	}
	rec := &models.ExportRecord{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		Format:      req.Format,
		Role:        req.Role,
		Ward:        req.Ward,
		Filters:     req.Filters.Canonical(),
		Rows:        rows,
		DurationMS:  durationMS,
		Outcome:     outcome,
		Message:     message,
		CreatedAt:   s.now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.Append(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record export history")
	}
}
