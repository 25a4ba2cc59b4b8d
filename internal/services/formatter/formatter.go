// Package formatter normalizes complaint records into flat export rows and
// derives dataset statistics. All functions are pure: same input, same output.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// RedactionMarker replaces personally identifying fields for citizen-level
// exports. Redaction is all-or-nothing per field, never partial.
const RedactionMarker = "[REDACTED]"

// Column names, in the fixed order every generator emits them.
const (
	ColComplaintID     = "Complaint ID"
	ColType            = "Type"
	ColDescription     = "Description"
	ColStatus          = "Status"
	ColPriority        = "Priority"
	ColWard            = "Ward"
	ColArea            = "Area"
	ColLocation        = "Location"
	ColSubmittedOn     = "Submitted On"
	ColAssignedOn      = "Assigned On"
	ColResolvedOn      = "Resolved On"
	ColClosedOn        = "Closed On"
	ColDeadline        = "Deadline"
	ColSLAStatus       = "SLA Status"
	ColResolutionHours = "Resolution Hours"
	ColAssignedTo      = "Assigned To"
	ColSubmittedBy     = "Submitted By"
	ColContactPhone    = "Contact Phone"
	ColContactEmail    = "Contact Email"
	ColRating          = "Rating"
	ColFeedback        = "Feedback"
	ColAttachments     = "Attachments"
)

// Columns returns the export column order. Callers must not mutate the
// returned slice between exports.
func Columns() []string {
	return []string{
		ColComplaintID, ColType, ColDescription, ColStatus, ColPriority,
		ColWard, ColArea, ColLocation,
		ColSubmittedOn, ColAssignedOn, ColResolvedOn, ColClosedOn, ColDeadline,
		ColSLAStatus, ColResolutionHours,
		ColAssignedTo, ColSubmittedBy, ColContactPhone, ColContactEmail,
		ColRating, ColFeedback, ColAttachments,
	}
}

const timestampLayout = "2006-01-02 15:04"

// FormatRecord maps one complaint to one flat export row.
// now anchors the Overdue/Active decision so the result is deterministic
// within one export run.
func FormatRecord(rec *models.ComplaintRecord, opts models.ExportOptions, now time.Time) map[string]string {
	row := map[string]string{
		ColComplaintID:     rec.ComplaintID,
		ColType:            rec.Type,
		ColDescription:     rec.Description,
		ColStatus:          string(rec.Status),
		ColPriority:        string(rec.Priority),
		ColWard:            rec.Ward,
		ColArea:            rec.Area,
		ColLocation:        rec.Location,
		ColSubmittedOn:     formatTime(rec.SubmittedOn),
		ColAssignedOn:      formatTime(rec.AssignedOn),
		ColResolvedOn:      formatTime(rec.ResolvedOn),
		ColClosedOn:        formatTime(rec.ClosedOn),
		ColDeadline:        formatTime(rec.Deadline),
		ColSLAStatus:       SLAStatus(rec, now),
		ColResolutionHours: formatResolutionHours(rec),
		ColAssignedTo:      rec.AssignedTo,
		ColSubmittedBy:     rec.SubmittedBy,
		ColContactPhone:    rec.ContactPhone,
		ColContactEmail:    rec.ContactEmail,
		ColRating:          formatRating(rec.Rating),
		ColFeedback:        rec.FeedbackComment,
		ColAttachments:     strconv.Itoa(rec.AttachmentCount),
	}

	if opts.UserRole == models.RoleCitizen {
		row[ColSubmittedBy] = RedactionMarker
		row[ColContactPhone] = RedactionMarker
		row[ColContactEmail] = RedactionMarker
	}

	return row
}

// FormatRecords maps a complaint slice to export rows, preserving order.
func FormatRecords(records []models.ComplaintRecord, opts models.ExportOptions, now time.Time) []map[string]string {
	rows := make([]map[string]string, len(records))
	for i := range records {
		rows[i] = FormatRecord(&records[i], opts, now)
	}
	return rows
}

// SLAStatus classifies a complaint's timeliness against its deadline:
// Met when resolved/closed on or before the deadline, Breached when
// resolved/closed after, Overdue when unresolved past the deadline,
// Active otherwise. No deadline means Active until resolution, Met after.
func SLAStatus(rec *models.ComplaintRecord, now time.Time) string {
	resolvedAt := rec.ResolvedAt()

	if !resolvedAt.IsZero() {
		if rec.Deadline.IsZero() || !resolvedAt.After(rec.Deadline) {
			return models.SLAMet
		}
		return models.SLABreached
	}

	if !rec.Deadline.IsZero() && now.After(rec.Deadline) {
		return models.SLAOverdue
	}
	return models.SLAActive
}

// ResolutionHours returns the whole-hour resolution time for a resolved
// complaint, rounded, and false when the complaint is still open.
func ResolutionHours(rec *models.ComplaintRecord) (int, bool) {
	resolvedAt := rec.ResolvedAt()
	if resolvedAt.IsZero() || rec.SubmittedOn.IsZero() {
		return 0, false
	}
	return int(math.Round(resolvedAt.Sub(rec.SubmittedOn).Hours())), true
}

func formatResolutionHours(rec *models.ComplaintRecord) string {
	if hours, ok := ResolutionHours(rec); ok {
		return strconv.Itoa(hours)
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

func formatRating(rating int) string {
	if rating <= 0 {
		return ""
	}
	return fmt.Sprintf("%d/5", rating)
}
