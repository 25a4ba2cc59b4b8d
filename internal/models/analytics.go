package models

import "time"

// SLA status values for one complaint relative to its deadline.
const (
	SLAMet      = "Met"      // resolved/closed on or before deadline
	SLABreached = "Breached" // resolved/closed after deadline
	SLAOverdue  = "Overdue"  // unresolved and past deadline
	SLAActive   = "Active"   // unresolved, deadline not yet reached
)

// SLAMetrics summarizes deadline performance across an export dataset.
type SLAMetrics struct {
	CompliancePct      float64 `json:"compliance_pct"` // on-time / (resolved+closed), 0 when none resolved
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
	TargetHours        int     `json:"target_hours"`
	OnTime             int     `json:"on_time"`
	Breached           int     `json:"breached"`
}

// PerformanceMetrics are derived quality indicators.
type PerformanceMetrics struct {
	Satisfaction        float64 `json:"satisfaction"`          // mean feedback rating over rated complaints
	EscalationRate      float64 `json:"escalation_rate"`       // reopened / total
	FirstCallResolution float64 `json:"first_call_resolution"` // resolved without reopen / total
	RepeatRate          float64 `json:"repeat_rate"`           // reopened / (resolved+closed)
}

// BucketStat is one named aggregate bucket (category, ward, or priority).
type BucketStat struct {
	Name               string  `json:"name"`
	Count              int     `json:"count"`
	Resolved           int     `json:"resolved"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
	Efficiency         float64 `json:"efficiency"` // resolved / count
}

// TrendPoint is one month of submission/resolution volume.
type TrendPoint struct {
	Month     string `json:"month"` // "2006-01"
	Submitted int    `json:"submitted"`
	Resolved  int    `json:"resolved"`
}

// AnalyticsSummary holds all statistics derived from one export dataset.
// It is recomputed from scratch on every export and has no persistent identity.
type AnalyticsSummary struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Pending    int `json:"pending"`
	Overdue    int `json:"overdue"`
	Closed     int `json:"closed"`
	Reopened   int `json:"reopened"`
	InProgress int `json:"in_progress"`

	SLA         SLAMetrics         `json:"sla"`
	Performance PerformanceMetrics `json:"performance"`

	Priorities []BucketStat `json:"priorities"`
	Categories []BucketStat `json:"categories"`
	Wards      []BucketStat `json:"wards"`
	Trend      []TrendPoint `json:"trend"`

	ComputedAt time.Time `json:"computed_at"`
}
