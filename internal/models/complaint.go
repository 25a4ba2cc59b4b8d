// Package models defines the data model for the export service
package models

import "time"

// ComplaintStatus is the lifecycle status of a complaint as reported by the CMS.
type ComplaintStatus string

const (
	StatusRegistered ComplaintStatus = "REGISTERED"
	StatusAssigned   ComplaintStatus = "ASSIGNED"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
	StatusClosed     ComplaintStatus = "CLOSED"
	StatusReopened   ComplaintStatus = "REOPENED"
)

// Priority levels.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Role identifies the requesting user's role for RBAC and redaction.
type Role string

const (
	RoleAdministrator   Role = "ADMINISTRATOR"
	RoleWardOfficer     Role = "WARD_OFFICER"
	RoleMaintenanceTeam Role = "MAINTENANCE_TEAM"
	RoleCitizen         Role = "CITIZEN"
)

// ComplaintRecord is a read-only snapshot of one complaint, fetched from the
// CMS for the duration of a single export. Zero timestamps mean "not yet".
type ComplaintRecord struct {
	ID              string          `json:"id"`
	ComplaintID     string          `json:"complaint_id"` // display id, e.g. "KSC0042"
	Type            string          `json:"type"`
	Description     string          `json:"description"`
	Status          ComplaintStatus `json:"status"`
	Priority        Priority        `json:"priority"`
	Ward            string          `json:"ward"`
	Area            string          `json:"area"`
	Location        string          `json:"location"`
	SubmittedOn     time.Time       `json:"submitted_on"`
	AssignedOn      time.Time       `json:"assigned_on"`
	ResolvedOn      time.Time       `json:"resolved_on"`
	ClosedOn        time.Time       `json:"closed_on"`
	Deadline        time.Time       `json:"deadline"`
	AssignedTo      string          `json:"assigned_to"`
	SubmittedBy     string          `json:"submitted_by"`
	ContactPhone    string          `json:"contact_phone"`
	ContactEmail    string          `json:"contact_email"`
	Rating          int             `json:"rating"` // 0 = not rated, 1..5 otherwise
	FeedbackComment string          `json:"feedback_comment"`
	AttachmentCount int             `json:"attachment_count"`
}

// IsResolved returns true when the complaint reached a resolved or closed state.
func (c *ComplaintRecord) IsResolved() bool {
	return c.Status == StatusResolved || c.Status == StatusClosed
}

// ResolvedAt returns the effective resolution timestamp: ResolvedOn when set,
// otherwise ClosedOn. Zero when the complaint is still open.
func (c *ComplaintRecord) ResolvedAt() time.Time {
	if !c.ResolvedOn.IsZero() {
		return c.ResolvedOn
	}
	return c.ClosedOn
}

// CloneRecords deep-copies a complaint slice. Generators only ever receive a
// clone so a misbehaving generator cannot corrupt the fetched dataset.
func CloneRecords(records []ComplaintRecord) []ComplaintRecord {
	if records == nil {
		return nil
	}
	out := make([]ComplaintRecord, len(records))
	copy(out, records)
	return out
}
