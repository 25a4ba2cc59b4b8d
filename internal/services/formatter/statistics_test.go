package formatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebunny221/smartcms-export/internal/models"
)

func statRecord(status models.ComplaintStatus, ward, category string, submitted time.Time, resolveAfter time.Duration) models.ComplaintRecord {
	rec := models.ComplaintRecord{
		Status:      status,
		Ward:        ward,
		Type:        category,
		SubmittedOn: submitted,
		Deadline:    submitted.Add(72 * time.Hour),
	}
	if status == models.StatusResolved || status == models.StatusClosed {
		rec.ResolvedOn = submitted.Add(resolveAfter)
	}
	return rec
}

func TestCalculateStatistics_Counts(t *testing.T) {
	base := testNow.Add(-30 * 24 * time.Hour)
	records := []models.ComplaintRecord{
		statRecord(models.StatusResolved, "W1", "Roads", base, 24*time.Hour),
		statRecord(models.StatusResolved, "W1", "Roads", base, 100*time.Hour), // breached
		statRecord(models.StatusClosed, "W2", "Water", base, 48*time.Hour),
		statRecord(models.StatusInProgress, "W2", "Water", base, 0),  // overdue (old deadline)
		statRecord(models.StatusRegistered, "W1", "Lighting", base, 0), // overdue too
		statRecord(models.StatusReopened, "W2", "Roads", base, 0),
	}

	s := CalculateStatistics(records, 72, testNow)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.Resolved)
	assert.Equal(t, 1, s.Closed)
	assert.Equal(t, 1, s.InProgress)
	assert.Equal(t, 1, s.Reopened)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 3, s.Overdue) // in-progress, registered, reopened all past deadline

	// 2 of 3 resolved/closed were on time
	assert.Equal(t, 2, s.SLA.OnTime)
	assert.Equal(t, 1, s.SLA.Breached)
	assert.InDelta(t, 66.7, s.SLA.CompliancePct, 0.1)
	assert.Equal(t, 72, s.SLA.TargetHours)

	// avg of 24, 100, 48
	assert.InDelta(t, 57.3, s.SLA.AvgResolutionHours, 0.1)
}

func TestCalculateStatistics_ZeroDenominators(t *testing.T) {
	s := CalculateStatistics(nil, 72, testNow)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.SLA.CompliancePct)
	assert.Zero(t, s.SLA.AvgResolutionHours)
	assert.Zero(t, s.Performance.Satisfaction)
	assert.Empty(t, s.Categories)
	assert.Empty(t, s.Trend)

	// No resolved complaints: compliance stays 0, not NaN
	open := []models.ComplaintRecord{
		statRecord(models.StatusRegistered, "W1", "Roads", testNow.Add(-time.Hour), 0),
	}
	s = CalculateStatistics(open, 72, testNow)
	assert.Zero(t, s.SLA.CompliancePct)
}

func TestCalculateStatistics_Buckets(t *testing.T) {
	base := testNow.Add(-10 * 24 * time.Hour)
	records := []models.ComplaintRecord{
		statRecord(models.StatusResolved, "W1", "Roads", base, 10*time.Hour),
		statRecord(models.StatusResolved, "W1", "Roads", base, 20*time.Hour),
		statRecord(models.StatusRegistered, "W1", "Roads", testNow.Add(-time.Hour), 0),
		statRecord(models.StatusResolved, "W2", "Water", base, 30*time.Hour),
	}

	s := CalculateStatistics(records, 72, testNow)

	require.Len(t, s.Categories, 2)
	roads := s.Categories[0] // highest count first
	assert.Equal(t, "Roads", roads.Name)
	assert.Equal(t, 3, roads.Count)
	assert.Equal(t, 2, roads.Resolved)
	assert.InDelta(t, 15.0, roads.AvgResolutionHours, 0.1)
	assert.InDelta(t, 66.7, roads.Efficiency, 0.1)

	require.Len(t, s.Wards, 2)
	assert.Equal(t, "W1", s.Wards[0].Name)
	assert.Equal(t, 3, s.Wards[0].Count)
}

func TestCalculateStatistics_TrendOrdered(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	records := []models.ComplaintRecord{
		statRecord(models.StatusResolved, "W1", "Roads", mar, 24*time.Hour),
		statRecord(models.StatusRegistered, "W1", "Roads", jan, 0),
		statRecord(models.StatusResolved, "W1", "Roads", feb, 24*time.Hour),
		statRecord(models.StatusRegistered, "W1", "Roads", feb, 0),
	}

	s := CalculateStatistics(records, 72, testNow)
	require.Len(t, s.Trend, 3)
	assert.Equal(t, "2024-01", s.Trend[0].Month)
	assert.Equal(t, "2024-02", s.Trend[1].Month)
	assert.Equal(t, "2024-03", s.Trend[2].Month)
	assert.Equal(t, 2, s.Trend[1].Submitted)
	assert.Equal(t, 1, s.Trend[1].Resolved)
}

func TestCalculateStatistics_Satisfaction(t *testing.T) {
	base := testNow.Add(-5 * 24 * time.Hour)
	a := statRecord(models.StatusResolved, "W1", "Roads", base, 10*time.Hour)
	a.Rating = 5
	b := statRecord(models.StatusResolved, "W1", "Roads", base, 10*time.Hour)
	b.Rating = 2
	c := statRecord(models.StatusResolved, "W1", "Roads", base, 10*time.Hour) // unrated

	s := CalculateStatistics([]models.ComplaintRecord{a, b, c}, 72, testNow)
	assert.InDelta(t, 3.5, s.Performance.Satisfaction, 0.01)
}
