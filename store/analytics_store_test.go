package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analyticshub/api/models"
)

func newTestAnalytics(t *testing.T) (*AnalyticsStore, *GoalStore) {
	t.Helper()
	records := newTestStore(t)
	goals := NewGoalStore(records)
	require.NoError(t, goals.Seed())
	return NewAnalyticsStore(records, goals, nil), goals
}

func TestTrackEventRequiresSessionID(t *testing.T) {
	analytics, _ := newTestAnalytics(t)

	_, err := analytics.TrackEvent(context.Background(), models.Event{PageURL: "/a"})
	assert.ErrorIs(t, err, ErrMissingSessionID)
}

func TestTrackEventDefaultsToPageView(t *testing.T) {
	analytics, _ := newTestAnalytics(t)

	id, err := analytics.TrackEvent(context.Background(), models.Event{SessionID: "s1", PageURL: "/a"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	records, err := analytics.records.Read(EventCollection)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.EventTypePageView, records[0]["eventType"])
}

func TestSessionCreateThenUpdate(t *testing.T) {
	analytics, _ := newTestAnalytics(t)
	ctx := context.Background()

	_, err := analytics.TrackEvent(ctx, models.Event{SessionID: "s1", PageURL: "/a", VisitorID: "v1"})
	require.NoError(t, err)
	_, err = analytics.TrackEvent(ctx, models.Event{SessionID: "s1", PageURL: "/b"})
	require.NoError(t, err)

	session, err := analytics.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, 2, session.PageViews)
	assert.Equal(t, "/a", session.EntryPage)
	assert.Equal(t, "/b", session.ExitPage)
	assert.Equal(t, "v1", session.VisitorID)
	assert.False(t, session.LastSeen.Before(session.FirstSeen))
}

func TestCustomEventDoesNotCountAsPageView(t *testing.T) {
	analytics, _ := newTestAnalytics(t)
	ctx := context.Background()

	_, err := analytics.TrackEvent(ctx, models.Event{SessionID: "s1", PageURL: "/a"})
	require.NoError(t, err)
	_, err = analytics.TrackEvent(ctx, models.Event{SessionID: "s1", EventType: "video_play"})
	require.NoError(t, err)

	session, err := analytics.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 1, session.PageViews)
	assert.Equal(t, "/a", session.ExitPage)
}

func TestTrackPageViewForcesType(t *testing.T) {
	analytics, _ := newTestAnalytics(t)

	_, err := analytics.TrackPageView(context.Background(), models.Event{
		SessionID: "s1",
		EventType: "something_else",
		PageURL:   "/a",
	})
	require.NoError(t, err)

	session, err := analytics.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 1, session.PageViews)
}

func TestGetSessionUnknownIsNil(t *testing.T) {
	analytics, _ := newTestAnalytics(t)

	session, err := analytics.GetSession("nope")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestConversionDispatchOnTriggerKey(t *testing.T) {
	analytics, goals := newTestAnalytics(t)
	ctx := context.Background()

	_, err := analytics.TrackEvent(ctx, models.Event{SessionID: "s1", PageURL: "/pricing"})
	require.NoError(t, err)
	_, err = analytics.TrackEvent(ctx, models.Event{SessionID: "s1", EventType: "newsletter_signup"})
	require.NoError(t, err)

	goal, err := goals.GetGoalBySlug("newsletter")
	require.NoError(t, err)
	require.NotNil(t, goal)
	assert.Equal(t, 1, goal.Conversions)
	assert.Equal(t, goal.Value, goal.TotalValue)

	session, err := analytics.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.True(t, session.Converted)
}

func TestUnknownTriggerKeyDoesNotConvert(t *testing.T) {
	analytics, goals := newTestAnalytics(t)

	_, err := analytics.TrackEvent(context.Background(), models.Event{SessionID: "s1", EventType: "scroll_depth"})
	require.NoError(t, err)

	all, err := goals.GetAllGoals()
	require.NoError(t, err)
	for _, goal := range all {
		assert.Zero(t, goal.Conversions)
	}

	session, err := analytics.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.False(t, session.Converted)
}

// Concurrent events for one session must not lose increments: the upsert
// runs as an atomic read-modify-write under the collection lock.
func TestConcurrentSessionUpdatesAreLinearizable(t *testing.T) {
	analytics, _ := newTestAnalytics(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := analytics.TrackEvent(ctx, models.Event{SessionID: "s1", PageURL: "/a"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := analytics.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, n, session.PageViews)

	count, err := analytics.records.Count(EventCollection, nil)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestGetSessionStats(t *testing.T) {
	analytics, _ := newTestAnalytics(t)
	ctx := context.Background()

	// s1: two page views, v1. s2: single page view (bounce), v2.
	_, err := analytics.TrackEvent(ctx, models.Event{SessionID: "s1", VisitorID: "v1", PageURL: "/a"})
	require.NoError(t, err)
	_, err = analytics.TrackEvent(ctx, models.Event{SessionID: "s1", VisitorID: "v1", PageURL: "/b"})
	require.NoError(t, err)
	_, err = analytics.TrackEvent(ctx, models.Event{SessionID: "s2", VisitorID: "v2", PageURL: "/a"})
	require.NoError(t, err)

	stats, err := analytics.GetSessionStats(models.TimeRange{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 2, stats.UniqueVisitors)
	assert.InDelta(t, 1.5, stats.AvgPagesPerSession, 0.001)
	assert.InDelta(t, 50.0, stats.BounceRate, 0.001)
}

func TestGetSessionStatsRangeFilter(t *testing.T) {
	analytics, _ := newTestAnalytics(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	_, err := analytics.TrackEvent(ctx, models.Event{SessionID: "old", PageURL: "/a", CreatedAt: old})
	require.NoError(t, err)
	_, err = analytics.TrackEvent(ctx, models.Event{SessionID: "new", PageURL: "/a"})
	require.NoError(t, err)

	stats, err := analytics.GetSessionStats(models.TimeRange{
		Start: time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
}
