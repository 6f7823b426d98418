package store

import (
	"fmt"
	"sort"
	"time"

	"analyticshub/api/models"
)

// ActiveWindow is how far back an event may be for its session to count
// as an active visitor.
const ActiveWindow = 5 * time.Minute

// DefaultTopPagesLimit caps the top-pages report when no limit is given.
const DefaultTopPagesLimit = 20

// DefaultRecentEventsLimit caps the recent-events feed.
const DefaultRecentEventsLimit = 50

// StatsStore computes point-in-time metrics by scanning the event and
// session collections on demand. Nothing is persisted; every call is a
// full recompute.
type StatsStore struct {
	records *RecordStore
	now     func() time.Time
}

func NewStatsStore(records *RecordStore) *StatsStore {
	return &StatsStore{
		records: records,
		now:     time.Now,
	}
}

func (s *StatsStore) loadEvents() ([]models.Event, error) {
	records, err := s.records.Read(EventCollection)
	if err != nil {
		return nil, err
	}
	var events []models.Event
	if err := FromRecords(records, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *StatsStore) loadSessions() ([]models.Session, error) {
	records, err := s.records.Read(SessionCollection)
	if err != nil {
		return nil, err
	}
	var sessions []models.Session
	if err := FromRecords(records, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetActiveVisitors reports sessions and visitors with at least one event
// in the trailing five-minute window, plus a per-page breakdown of the
// page views inside that window.
func (s *StatsStore) GetActiveVisitors() (models.ActiveVisitorsResult, error) {
	events, err := s.loadEvents()
	if err != nil {
		return models.ActiveVisitorsResult{}, err
	}

	cutoff := s.now().UTC().Add(-ActiveWindow)
	sessions := make(map[string]struct{})
	visitors := make(map[string]struct{})
	pageIndex := make(map[string]int)
	pages := []models.ActivePage{}

	for _, event := range events {
		if event.CreatedAt.Before(cutoff) {
			continue
		}
		sessions[event.SessionID] = struct{}{}
		if event.VisitorID != "" {
			visitors[event.VisitorID] = struct{}{}
		} else {
			visitors[event.SessionID] = struct{}{}
		}
		if event.EventType != models.EventTypePageView || event.PageURL == "" {
			continue
		}
		if i, ok := pageIndex[event.PageURL]; ok {
			pages[i].Count++
		} else {
			pageIndex[event.PageURL] = len(pages)
			pages = append(pages, models.ActivePage{
				URL:   event.PageURL,
				Title: event.PageTitle,
				Count: 1,
			})
		}
	}

	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Count > pages[j].Count })

	return models.ActiveVisitorsResult{
		ActiveVisitors: len(visitors),
		ActiveSessions: len(sessions),
		ActivePages:    pages,
	}, nil
}

// GetDashboardStats summarizes the whole store for the dashboard header.
// Rates are percentages computed from the session records, not constants.
func (s *StatsStore) GetDashboardStats(rng models.TimeRange) (models.DashboardStats, error) {
	events, err := s.loadEvents()
	if err != nil {
		return models.DashboardStats{}, err
	}
	sessions, err := s.loadSessions()
	if err != nil {
		return models.DashboardStats{}, err
	}

	stats := models.DashboardStats{}
	visitors := make(map[string]struct{})
	var bounced int
	var totalDuration float64

	for _, session := range sessions {
		if !rng.Contains(session.FirstSeen) {
			continue
		}
		stats.TotalSessions++
		if session.VisitorID != "" {
			visitors[session.VisitorID] = struct{}{}
		}
		if session.PageViews <= 1 {
			bounced++
		}
		if session.Converted {
			stats.ConvertedSessions++
		}
		totalDuration += session.LastSeen.Sub(session.FirstSeen).Seconds()
	}
	stats.TotalVisitors = len(visitors)

	cutoff := s.now().UTC().Add(-ActiveWindow)
	activeSessions := make(map[string]struct{})
	for _, event := range events {
		if rng.Contains(event.CreatedAt) && event.EventType == models.EventTypePageView {
			stats.TotalPageViews++
		}
		if !event.CreatedAt.Before(cutoff) {
			activeSessions[event.SessionID] = struct{}{}
		}
	}
	stats.ActiveVisitors = len(activeSessions)

	if stats.TotalSessions > 0 {
		n := float64(stats.TotalSessions)
		stats.BounceRate = float64(bounced) / n * 100
		stats.ConversionRate = float64(stats.ConvertedSessions) / n * 100
		stats.AvgSessionDuration = totalDuration / n
	}
	return stats, nil
}

// GetTopPages groups page views by URL, counting views and distinct
// sessions, ordered by view count descending. Entry/bounce/exit figures
// come from the session records.
func (s *StatsStore) GetTopPages(rng models.TimeRange, limit int) ([]models.PageStats, error) {
	if limit <= 0 {
		limit = DefaultTopPagesLimit
	}

	events, err := s.loadEvents()
	if err != nil {
		return nil, err
	}
	sessions, err := s.loadSessions()
	if err != nil {
		return nil, err
	}

	type pageAgg struct {
		stats    models.PageStats
		sessions map[string]struct{}
	}
	byURL := make(map[string]*pageAgg)

	for _, event := range events {
		if event.EventType != models.EventTypePageView || event.PageURL == "" {
			continue
		}
		if !rng.Contains(event.CreatedAt) {
			continue
		}
		agg, ok := byURL[event.PageURL]
		if !ok {
			agg = &pageAgg{
				stats:    models.PageStats{URL: event.PageURL, Title: event.PageTitle},
				sessions: make(map[string]struct{}),
			}
			byURL[event.PageURL] = agg
		}
		agg.stats.Views++
		agg.sessions[event.SessionID] = struct{}{}
		if agg.stats.Title == "" {
			agg.stats.Title = event.PageTitle
		}
	}

	entries := make(map[string]int)
	entryBounces := make(map[string]int)
	exits := make(map[string]int)
	for _, session := range sessions {
		if !rng.Contains(session.FirstSeen) {
			continue
		}
		if session.EntryPage != "" {
			entries[session.EntryPage]++
			if session.PageViews <= 1 {
				entryBounces[session.EntryPage]++
			}
		}
		if session.ExitPage != "" {
			exits[session.ExitPage]++
		}
	}

	results := make([]models.PageStats, 0, len(byURL))
	for url, agg := range byURL {
		stats := agg.stats
		stats.UniqueVisitors = len(agg.sessions)
		stats.Entries = entries[url]
		if stats.Entries > 0 {
			stats.BounceRate = float64(entryBounces[url]) / float64(stats.Entries) * 100
		}
		if stats.Views > 0 {
			stats.ExitRate = float64(exits[url]) / float64(stats.Views) * 100
		}
		results = append(results, stats)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Views != results[j].Views {
			return results[i].Views > results[j].Views
		}
		return results[i].URL < results[j].URL
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetTrafficOverTime buckets page views, sessions and visitors by day or
// hour across the range, zero-filling empty buckets. Defaults to the last
// seven days when no range is given.
func (s *StatsStore) GetTrafficOverTime(rng models.TimeRange, interval string) ([]models.TrafficPoint, error) {
	var step time.Duration
	switch interval {
	case "", "day":
		step = 24 * time.Hour
	case "hour":
		step = time.Hour
	default:
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	end := rng.End
	if end.IsZero() {
		end = s.now().UTC()
	}
	start := rng.Start
	if start.IsZero() {
		start = end.Add(-7 * 24 * time.Hour)
	}
	start = start.UTC().Truncate(step)
	end = end.UTC()

	events, err := s.loadEvents()
	if err != nil {
		return nil, err
	}

	type bucketAgg struct {
		sessions  map[string]struct{}
		visitors  map[string]struct{}
		pageViews int
	}
	buckets := make(map[time.Time]*bucketAgg)

	for _, event := range events {
		ts := event.CreatedAt.UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		key := ts.Truncate(step)
		agg, ok := buckets[key]
		if !ok {
			agg = &bucketAgg{
				sessions: make(map[string]struct{}),
				visitors: make(map[string]struct{}),
			}
			buckets[key] = agg
		}
		agg.sessions[event.SessionID] = struct{}{}
		if event.VisitorID != "" {
			agg.visitors[event.VisitorID] = struct{}{}
		} else {
			agg.visitors[event.SessionID] = struct{}{}
		}
		if event.EventType == models.EventTypePageView {
			agg.pageViews++
		}
	}

	var points []models.TrafficPoint
	for t := start; !t.After(end); t = t.Add(step) {
		point := models.TrafficPoint{Date: t}
		if agg, ok := buckets[t]; ok {
			point.Sessions = len(agg.sessions)
			point.Visitors = len(agg.visitors)
			point.PageViews = agg.pageViews
		}
		points = append(points, point)
	}
	return points, nil
}

// GetRecentEvents returns the last limit events, newest first.
func (s *StatsStore) GetRecentEvents(limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultRecentEventsLimit
	}

	events, err := s.loadEvents()
	if err != nil {
		return nil, err
	}

	recent := make([]models.Event, 0, limit)
	for i := len(events) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, events[i])
	}
	return recent, nil
}
