package models

import "time"

// Diagnostic statuses.
const (
	DiagPass = "pass"
	DiagWarn = "warning"
	DiagFail = "fail"
)

// DiagnosticResult is the outcome of one self-check.
type DiagnosticResult struct {
	Component string         `json:"component"`
	Status    string         `json:"status"` // pass, warning, fail
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// DiagnosticReport is the aggregate of all self-checks.
// Healthy is false when any check failed; warnings do not affect it.
type DiagnosticReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Healthy     bool               `json:"healthy"`
	Results     []DiagnosticResult `json:"results"`
}
