package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analyticshub/api/models"
)

func newTestStats(t *testing.T) (*StatsStore, *AnalyticsStore) {
	t.Helper()
	records := newTestStore(t)
	analytics := NewAnalyticsStore(records, nil, nil)
	return NewStatsStore(records), analytics
}

func track(t *testing.T, analytics *AnalyticsStore, event models.Event) {
	t.Helper()
	_, err := analytics.TrackEvent(context.Background(), event)
	require.NoError(t, err)
}

func TestActiveVisitorsWindowBoundary(t *testing.T) {
	stats, analytics := newTestStats(t)
	now := time.Now().UTC()

	// Inside the five-minute window.
	track(t, analytics, models.Event{SessionID: "s1", VisitorID: "v1", PageURL: "/a", CreatedAt: now.Add(-4 * time.Minute)})
	// Outside it.
	track(t, analytics, models.Event{SessionID: "s2", VisitorID: "v2", PageURL: "/b", CreatedAt: now.Add(-6 * time.Minute)})

	result, err := stats.GetActiveVisitors()
	require.NoError(t, err)

	assert.Equal(t, 1, result.ActiveSessions)
	assert.Equal(t, 1, result.ActiveVisitors)
	require.Len(t, result.ActivePages, 1)
	assert.Equal(t, "/a", result.ActivePages[0].URL)
	assert.Equal(t, 1, result.ActivePages[0].Count)
}

func TestActiveVisitorsPageCounts(t *testing.T) {
	stats, analytics := newTestStats(t)

	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/a", PageTitle: "Home"})
	track(t, analytics, models.Event{SessionID: "s2", PageURL: "/a"})
	track(t, analytics, models.Event{SessionID: "s2", PageURL: "/b"})
	// Custom events do not add to the page breakdown.
	track(t, analytics, models.Event{SessionID: "s1", EventType: "video_play"})

	result, err := stats.GetActiveVisitors()
	require.NoError(t, err)

	assert.Equal(t, 2, result.ActiveSessions)
	require.Len(t, result.ActivePages, 2)
	assert.Equal(t, "/a", result.ActivePages[0].URL)
	assert.Equal(t, 2, result.ActivePages[0].Count)
	// Title comes from the first occurrence.
	assert.Equal(t, "Home", result.ActivePages[0].Title)
}

func TestTopPagesOrdering(t *testing.T) {
	stats, analytics := newTestStats(t)

	for i := 0; i < 3; i++ {
		track(t, analytics, models.Event{SessionID: "s1", PageURL: "/a"})
	}
	for i := 0; i < 5; i++ {
		track(t, analytics, models.Event{SessionID: "s2", PageURL: "/b"})
	}

	pages, err := stats.GetTopPages(models.TimeRange{}, 0)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "/b", pages[0].URL)
	assert.Equal(t, 5, pages[0].Views)
	assert.Equal(t, "/a", pages[1].URL)
	assert.Equal(t, 3, pages[1].Views)
	assert.Equal(t, 1, pages[0].UniqueVisitors)
}

func TestTopPagesLimit(t *testing.T) {
	stats, analytics := newTestStats(t)

	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/a"})
	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/b"})
	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/c"})

	pages, err := stats.GetTopPages(models.TimeRange{}, 2)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestTopPagesEntryAndExitRates(t *testing.T) {
	stats, analytics := newTestStats(t)

	// s1 enters at /a and leaves from /b; s2 bounces on /a.
	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/a"})
	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/b"})
	track(t, analytics, models.Event{SessionID: "s2", PageURL: "/a"})

	pages, err := stats.GetTopPages(models.TimeRange{}, 0)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	a := pages[0]
	require.Equal(t, "/a", a.URL)
	assert.Equal(t, 2, a.Entries)
	assert.InDelta(t, 50.0, a.BounceRate, 0.001)

	b := pages[1]
	require.Equal(t, "/b", b.URL)
	// s1 exited from /b: one exit over one view.
	assert.InDelta(t, 100.0, b.ExitRate, 0.001)
}

func TestDashboardStats(t *testing.T) {
	stats, analytics := newTestStats(t)

	track(t, analytics, models.Event{SessionID: "s1", VisitorID: "v1", PageURL: "/a"})
	track(t, analytics, models.Event{SessionID: "s1", VisitorID: "v1", PageURL: "/b"})
	track(t, analytics, models.Event{SessionID: "s2", VisitorID: "v2", PageURL: "/a"})

	result, err := stats.GetDashboardStats(models.TimeRange{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalSessions)
	assert.Equal(t, 2, result.TotalVisitors)
	assert.Equal(t, 3, result.TotalPageViews)
	assert.Equal(t, 2, result.ActiveVisitors)
	assert.InDelta(t, 50.0, result.BounceRate, 0.001)
	assert.Zero(t, result.ConvertedSessions)
}

func TestTrafficOverTimeBuckets(t *testing.T) {
	stats, analytics := newTestStats(t)

	day2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	track(t, analytics, models.Event{SessionID: "s1", VisitorID: "v1", PageURL: "/a", CreatedAt: day2.Add(10 * time.Hour)})
	track(t, analytics, models.Event{SessionID: "s1", VisitorID: "v1", PageURL: "/b", CreatedAt: day2.Add(11 * time.Hour)})
	track(t, analytics, models.Event{SessionID: "s2", VisitorID: "v2", PageURL: "/a", CreatedAt: day3.Add(9 * time.Hour)})

	rng := models.TimeRange{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 3, 23, 59, 59, 0, time.UTC),
	}
	points, err := stats.GetTrafficOverTime(rng, "day")
	require.NoError(t, err)
	require.Len(t, points, 3)

	// Day one is zero-filled; the others carry the tracked traffic.
	assert.Zero(t, points[0].PageViews)
	assert.Equal(t, 2, points[1].PageViews)
	assert.Equal(t, 1, points[1].Sessions)
	assert.Equal(t, 1, points[2].PageViews)
	assert.Equal(t, 1, points[2].Visitors)
}

func TestTrafficOverTimeDefaultRange(t *testing.T) {
	stats, _ := newTestStats(t)

	points, err := stats.GetTrafficOverTime(models.TimeRange{}, "day")
	require.NoError(t, err)
	// Zero-filled daily buckets covering the default trailing 7 days.
	assert.Len(t, points, 8)
}

func TestTrafficOverTimeRejectsBadInterval(t *testing.T) {
	stats, _ := newTestStats(t)

	_, err := stats.GetTrafficOverTime(models.TimeRange{}, "fortnight")
	assert.Error(t, err)
}

func TestRecentEventsNewestFirst(t *testing.T) {
	stats, analytics := newTestStats(t)

	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/a"})
	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/b"})
	track(t, analytics, models.Event{SessionID: "s1", PageURL: "/c"})

	events, err := stats.GetRecentEvents(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "/c", events[0].PageURL)
	assert.Equal(t, "/b", events[1].PageURL)
}
