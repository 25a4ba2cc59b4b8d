// Package export orchestrates the full export pipeline: dedup, permission
// checks, the CMS fetch, formatting, generation, and delivery.
package export

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thebunny221/smartcms-export/internal/common"
	"github.com/thebunny221/smartcms-export/internal/models"
)

// Coordinator owns the in-flight export registry. All state lives behind one
// mutex so a fingerprint can never be admitted twice, and every mutation is
// funneled through it rather than shared maps scattered across callers.
// The clock is injectable for deterministic sweep tests.
type Coordinator struct {
	mu     sync.Mutex
	active map[string]string              // fingerprint -> export id
	states map[string]*models.ExportState // export id -> state

	now    func() time.Time
	logger *common.Logger
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(logger *common.Logger) *Coordinator {
	return &Coordinator{
		active: make(map[string]string),
		states: make(map[string]*models.ExportState),
		now:    time.Now,
		logger: logger,
	}
}

// SetClock overrides the time source (tests).
func (c *Coordinator) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Begin admits a new export for the fingerprint, or rejects it with a
// concurrency error when the same fingerprint is already in flight.
// Admission and registration are one atomic step.
func (c *Coordinator) Begin(fingerprint string, format models.ExportFormat) (*models.ExportState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existingID, ok := c.active[fingerprint]; ok {
		if st, ok := c.states[existingID]; ok && !st.Status.IsTerminal() {
			return nil, models.NewConcurrencyError("an identical export is already in progress - please wait for it to finish")
		}
		// Terminal state still lingering in the retention window; the
		// fingerprint slot is free for reuse.
		delete(c.active, fingerprint)
	}

	state := &models.ExportState{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		Format:      format,
		Status:      models.ExportPreparing,
		Progress:    "Preparing export",
		StartTime:   c.now(),
	}
	c.active[fingerprint] = state.ID
	c.states[state.ID] = state
	return c.snapshot(state), nil
}

// Transition moves an export to a new non-terminal status.
// Transitions on unknown or already terminal exports are ignored so a slow
// pipeline step cannot resurrect a swept or cancelled export.
func (c *Coordinator) Transition(id string, status models.ExportStatus, progress string) *models.ExportState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[id]
	if !ok || st.Status.IsTerminal() {
		return nil
	}
	st.Status = status
	st.Progress = progress
	return c.snapshot(st)
}

// Complete marks an export completed and releases its fingerprint slot.
func (c *Coordinator) Complete(id string) *models.ExportState {
	return c.finish(id, models.ExportCompleted, "Export ready")
}

// Fail marks an export failed with a user-facing reason and releases its
// fingerprint slot.
func (c *Coordinator) Fail(id string, reason string) *models.ExportState {
	return c.finish(id, models.ExportFailed, reason)
}

func (c *Coordinator) finish(id string, status models.ExportStatus, progress string) *models.ExportState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[id]
	if !ok || st.Status.IsTerminal() {
		return nil
	}
	st.Status = status
	st.Progress = progress
	st.CompletedAt = c.now()
	delete(c.active, st.Fingerprint)
	return c.snapshot(st)
}

// Get returns a copy of the state for an export id.
func (c *Coordinator) Get(id string) (*models.ExportState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	if !ok {
		return nil, false
	}
	return c.snapshot(st), true
}

// Active returns copies of all tracked states, newest first.
func (c *Coordinator) Active() []*models.ExportState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*models.ExportState, 0, len(c.states))
	for _, st := range c.states {
		out = append(out, c.snapshot(st))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out
}

// InFlight reports whether a fingerprint currently holds an admission slot.
func (c *Coordinator) InFlight(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.active[fingerprint]
	if !ok {
		return false
	}
	st, ok := c.states[id]
	return ok && !st.Status.IsTerminal()
}

// CancelFingerprint force-fails an in-flight export by fingerprint, freeing
// the slot immediately. The pipeline goroutine notices the terminal state at
// its next transition and abandons its work. Returns false when nothing was
// in flight for the fingerprint.
func (c *Coordinator) CancelFingerprint(fingerprint string) (*models.ExportState, bool) {
	c.mu.Lock()
	id, ok := c.active[fingerprint]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	st := c.finish(id, models.ExportFailed, "Export cancelled")
	return st, st != nil
}

// Sweep abandons exports stuck in a non-terminal state longer than
// stuckAfter and evicts terminal states older than retainFor. Returns the
// states it force-failed so the caller can notify watchers.
func (c *Coordinator) Sweep(stuckAfter, retainFor time.Duration) []*models.ExportState {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var failed []*models.ExportState

	for id, st := range c.states {
		if st.Status.IsTerminal() {
			if now.Sub(st.CompletedAt) > retainFor {
				delete(c.states, id)
				if c.active[st.Fingerprint] == id {
					delete(c.active, st.Fingerprint)
				}
			}
			continue
		}
		if now.Sub(st.StartTime) > stuckAfter {
			st.Status = models.ExportFailed
			st.Progress = fmt.Sprintf("Export abandoned after %s without completing", stuckAfter)
			st.CompletedAt = now
			delete(c.active, st.Fingerprint)
			failed = append(failed, c.snapshot(st))
			c.logger.Warn().
				Str("export_id", id).
				Str("fingerprint", st.Fingerprint).
				Str("format", string(st.Format)).
				Msg("Abandoned stuck export")
		}
	}
	return failed
}

// snapshot copies a state so callers never hold a pointer into the map.
// Callers must hold c.mu.
func (c *Coordinator) snapshot(st *models.ExportState) *models.ExportState {
	cp := *st
	return &cp
}
