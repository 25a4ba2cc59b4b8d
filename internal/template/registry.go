package template

import (
	"path/filepath"
	"sync"
)

// Info describes one registered template.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Registry is a static append-only catalog of templates, seeded at process
// start. Reads never fail for a registered id; an unregistered id is a
// configuration error in the caller, not a recoverable condition.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Info
	order   []string
}

// NewRegistry creates an empty template registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Info)}
}

// DefaultRegistry returns a registry seeded with the built-in report
// templates, resolved relative to the configured templates directory.
func DefaultRegistry(dir string) *Registry {
	r := NewRegistry()
	r.Register("complaint-report", "Complaint Report", filepath.Join(dir, "complaint_report.html"),
		"Full complaint listing with executive summary and breakdowns")
	r.Register("analytics-summary", "Analytics Summary", filepath.Join(dir, "analytics_summary.html"),
		"Compact statistics-only summary for dashboards and print")
	return r
}

// Register adds a template to the catalog. Re-registering an id overwrites
// its metadata but keeps its original position.
func (r *Registry) Register(id, name, path, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; !exists {
		r.order = append(r.order, id)
	}
	r.entries[id] = Info{ID: id, Name: name, Path: path, Description: description}
}

// Get returns a template's metadata by id.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.entries[id]
	return info, ok
}

// Path returns a template's resource path by id.
func (r *Registry) Path(id string) (string, bool) {
	info, ok := r.Get(id)
	return info.Path, ok
}

// All returns all registered templates in registration order.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}
