package formatter

import (
	"sort"
	"time"

	"github.com/thebunny221/smartcms-export/internal/models"
)

// CalculateStatistics derives the full analytics summary from a complaint
// snapshot. Everything is recomputed from the input list on every call —
// there is no incremental path, each invocation is O(records).
func CalculateStatistics(records []models.ComplaintRecord, targetHours int, now time.Time) *models.AnalyticsSummary {
	summary := &models.AnalyticsSummary{
		Total:      len(records),
		ComputedAt: now,
	}
	summary.SLA.TargetHours = targetHours

	var (
		totalResolutionHours int
		resolvedWithHours    int
		ratingSum            int
		ratedCount           int
	)

	categories := newBucketSet()
	wards := newBucketSet()
	priorities := newBucketSet()
	trend := map[string]*models.TrendPoint{}

	for i := range records {
		rec := &records[i]

		switch rec.Status {
		case models.StatusResolved:
			summary.Resolved++
		case models.StatusClosed:
			summary.Closed++
		case models.StatusReopened:
			summary.Reopened++
		case models.StatusInProgress:
			summary.InProgress++
		default:
			summary.Pending++
		}

		switch SLAStatus(rec, now) {
		case models.SLAMet:
			summary.SLA.OnTime++
		case models.SLABreached:
			summary.SLA.Breached++
		case models.SLAOverdue:
			summary.Overdue++
		}

		hours, resolved := ResolutionHours(rec)
		if resolved {
			totalResolutionHours += hours
			resolvedWithHours++
		}

		if rec.Rating > 0 {
			ratingSum += rec.Rating
			ratedCount++
		}

		categories.add(rec.Type, hours, resolved)
		wards.add(rec.Ward, hours, resolved)
		priorities.add(string(rec.Priority), hours, resolved)

		if !rec.SubmittedOn.IsZero() {
			month := rec.SubmittedOn.Format("2006-01")
			tp, ok := trend[month]
			if !ok {
				tp = &models.TrendPoint{Month: month}
				trend[month] = tp
			}
			tp.Submitted++
			if rec.IsResolved() {
				tp.Resolved++
			}
		}
	}

	resolvedOrClosed := summary.Resolved + summary.Closed
	if resolvedOrClosed > 0 {
		summary.SLA.CompliancePct = round1(float64(summary.SLA.OnTime) / float64(resolvedOrClosed) * 100)
	}
	if resolvedWithHours > 0 {
		summary.SLA.AvgResolutionHours = round1(float64(totalResolutionHours) / float64(resolvedWithHours))
	}

	if ratedCount > 0 {
		summary.Performance.Satisfaction = round1(float64(ratingSum) / float64(ratedCount))
	}
	if summary.Total > 0 {
		summary.Performance.EscalationRate = round1(float64(summary.Reopened) / float64(summary.Total) * 100)
		summary.Performance.FirstCallResolution = round1(float64(resolvedOrClosed) / float64(summary.Total) * 100)
	}
	if resolvedOrClosed > 0 {
		summary.Performance.RepeatRate = round1(float64(summary.Reopened) / float64(resolvedOrClosed) * 100)
	}

	summary.Categories = categories.sorted()
	summary.Wards = wards.sorted()
	summary.Priorities = priorities.sorted()
	summary.Trend = sortedTrend(trend)

	return summary
}

// bucketSet accumulates per-name counts and resolution hours.
type bucketSet struct {
	buckets map[string]*bucketAcc
}

type bucketAcc struct {
	count         int
	resolved      int
	resolvedHours int
}

func newBucketSet() *bucketSet {
	return &bucketSet{buckets: make(map[string]*bucketAcc)}
}

func (b *bucketSet) add(name string, hours int, resolved bool) {
	if name == "" {
		name = "Unspecified"
	}
	acc, ok := b.buckets[name]
	if !ok {
		acc = &bucketAcc{}
		b.buckets[name] = acc
	}
	acc.count++
	if resolved {
		acc.resolved++
		acc.resolvedHours += hours
	}
}

// sorted materializes the buckets ordered by count descending, name
// ascending for ties, so export output is deterministic.
func (b *bucketSet) sorted() []models.BucketStat {
	out := make([]models.BucketStat, 0, len(b.buckets))
	for name, acc := range b.buckets {
		stat := models.BucketStat{
			Name:     name,
			Count:    acc.count,
			Resolved: acc.resolved,
		}
		if acc.resolved > 0 {
			stat.AvgResolutionHours = round1(float64(acc.resolvedHours) / float64(acc.resolved))
		}
		if acc.count > 0 {
			stat.Efficiency = round1(float64(acc.resolved) / float64(acc.count) * 100)
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedTrend(trend map[string]*models.TrendPoint) []models.TrendPoint {
	out := make([]models.TrendPoint, 0, len(trend))
	for _, tp := range trend {
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
