package cms

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// flexInt handles JSON values that may be either a number or a string.
// The CMS serializes ratings as numbers but older rows carry them as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexInt(num)
		return nil
	}
	var fl float64
	if err := json.Unmarshal(data, &fl); err == nil {
		*f = flexInt(int(fl))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid numeric value: %s", s)
		}
		*f = flexInt(num)
		return nil
	}
	return fmt.Errorf("unsupported numeric format: %s", string(data))
}

// flexTime accepts the timestamp shapes the CMS has shipped over time:
// RFC 3339, "2006-01-02 15:04:05", bare dates, and null/empty for unset.
type flexTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		f.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unsupported timestamp format: %s", string(data))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		f.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp: %s", s)
}

// wireComplaint is the CMS wire shape for one complaint.
type wireComplaint struct {
	ID              string   `json:"id"`
	ComplaintID     string   `json:"complaintId"`
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	Ward            string   `json:"ward"`
	Area            string   `json:"area"`
	Location        string   `json:"location"`
	SubmittedOn     flexTime `json:"submittedOn"`
	AssignedOn      flexTime `json:"assignedOn"`
	ResolvedOn      flexTime `json:"resolvedOn"`
	ClosedOn        flexTime `json:"closedOn"`
	Deadline        flexTime `json:"deadline"`
	AssignedTo      string   `json:"assignedTo"`
	SubmittedBy     string   `json:"submittedBy"`
	ContactPhone    string   `json:"contactPhone"`
	ContactEmail    string   `json:"contactEmail"`
	Rating          flexInt  `json:"rating"`
	FeedbackComment string   `json:"feedbackComment"`
	AttachmentCount flexInt  `json:"attachmentCount"`
}

func (w *wireComplaint) toRecord() models.ComplaintRecord {
	return models.ComplaintRecord{
		ID:              w.ID,
		ComplaintID:     w.ComplaintID,
		Type:            w.Type,
		Description:     w.Description,
		Status:          models.ComplaintStatus(strings.ToUpper(w.Status)),
		Priority:        models.Priority(strings.ToUpper(w.Priority)),
		Ward:            w.Ward,
		Area:            w.Area,
		Location:        w.Location,
		SubmittedOn:     w.SubmittedOn.Time,
		AssignedOn:      w.AssignedOn.Time,
		ResolvedOn:      w.ResolvedOn.Time,
		ClosedOn:        w.ClosedOn.Time,
		Deadline:        w.Deadline.Time,
		AssignedTo:      w.AssignedTo,
		SubmittedBy:     w.SubmittedBy,
		ContactPhone:    w.ContactPhone,
		ContactEmail:    w.ContactEmail,
		Rating:          int(w.Rating),
		FeedbackComment: w.FeedbackComment,
		AttachmentCount: int(w.AttachmentCount),
	}
}

// envelope is the standard CMS response wrapper. Older deployments return
// the complaint array at the top level instead of under data, so both spots
// are checked before giving up.
type envelope struct {
	Success    *bool           `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Complaints json.RawMessage `json:"complaints"`
}

type envelopeData struct {
	Complaints []wireComplaint `json:"complaints"`
}

func decodeEnvelope(body []byte) ([]models.ComplaintRecord, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Success != nil && !*env.Success {
		if env.Message != "" {
			return nil, fmt.Errorf("CMS reported failure: %s", env.Message)
		}
		return nil, fmt.Errorf("CMS reported failure")
	}

	var wire []wireComplaint
	switch {
	case len(env.Data) > 0 && string(env.Data) != "null":
		var data envelopeData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode data block: %w", err)
		}
		wire = data.Complaints
	case len(env.Complaints) > 0 && string(env.Complaints) != "null":
		// legacy top-level shape
		if err := json.Unmarshal(env.Complaints, &wire); err != nil {
			return nil, fmt.Errorf("decode legacy complaints: %w", err)
		}
	default:
		return nil, fmt.Errorf("no complaints block in response")
	}

	records := make([]models.ComplaintRecord, 0, len(wire))
	for i := range wire {
		records = append(records, wire[i].toRecord())
	}
	return records, nil
}
