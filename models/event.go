package models

import "time"

// Event types understood by the tracker. Anything else is treated as a
// custom event and matched against goal trigger keys.
const (
	EventTypePageView = "page_view"
)

// Event represents a single observed visitor action. Events are immutable
// once ingested; the record store assigns the integer ID.
type Event struct {
	ID         int            `json:"id,omitempty"`
	EventType  string         `json:"eventType"`
	PageURL    string         `json:"pageUrl,omitempty"`
	PageTitle  string         `json:"pageTitle,omitempty"`
	Referrer   string         `json:"referrer,omitempty"`
	SessionID  string         `json:"sessionId"`
	VisitorID  string         `json:"visitorId,omitempty"`
	DeviceType string         `json:"deviceType,omitempty"`
	Country    string         `json:"country,omitempty"`
	City       string         `json:"city,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"createdAt,omitempty"`
}

// Session is the aggregated state for one continuous visit, keyed by
// SessionID. PageViews counts page_view events only; LastSeen is
// monotonically non-decreasing.
type Session struct {
	ID         int       `json:"id,omitempty"`
	SessionID  string    `json:"sessionId"`
	VisitorID  string    `json:"visitorId,omitempty"`
	FirstSeen  time.Time `json:"firstSeen"`
	LastSeen   time.Time `json:"lastSeen"`
	PageViews  int       `json:"pageViews"`
	EntryPage  string    `json:"entryPage,omitempty"`
	ExitPage   string    `json:"exitPage,omitempty"`
	DeviceType string    `json:"deviceType,omitempty"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
	Converted  bool      `json:"converted"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// TimeRange bounds an aggregation query. A zero Start or End leaves that
// side unbounded, so the zero TimeRange means "all time".
type TimeRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

func (r TimeRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// ActivePage is one entry of the live-visitors page breakdown.
type ActivePage struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Count int    `json:"count"`
}

type ActiveVisitorsResult struct {
	ActiveVisitors int          `json:"activeVisitors"`
	ActiveSessions int          `json:"activeSessions"`
	ActivePages    []ActivePage `json:"activePages"`
}

type DashboardStats struct {
	TotalSessions      int     `json:"totalSessions"`
	TotalVisitors      int     `json:"totalVisitors"`
	TotalPageViews     int     `json:"totalPageViews"`
	ConvertedSessions  int     `json:"convertedSessions"`
	ActiveVisitors     int     `json:"activeVisitors"`
	BounceRate         float64 `json:"bounceRate"`
	ConversionRate     float64 `json:"conversionRate"`
	AvgSessionDuration float64 `json:"avgSessionDuration"`
}

// PageStats is one row of the top-pages report. Entries, BounceRate and
// ExitRate are derived from session entry/exit pages.
type PageStats struct {
	URL            string  `json:"url"`
	Title          string  `json:"title,omitempty"`
	Views          int     `json:"views"`
	UniqueVisitors int     `json:"uniqueVisitors"`
	Entries        int     `json:"entries"`
	BounceRate     float64 `json:"bounceRate"`
	ExitRate       float64 `json:"exitRate"`
}

// TrafficPoint is one bucket of the traffic-over-time series.
type TrafficPoint struct {
	Date      time.Time `json:"date"`
	Visitors  int       `json:"visitors"`
	Sessions  int       `json:"sessions"`
	PageViews int       `json:"pageViews"`
}

type SessionStats struct {
	TotalSessions      int     `json:"totalSessions"`
	UniqueVisitors     int     `json:"uniqueVisitors"`
	AvgDuration        float64 `json:"avgDuration"`
	AvgPagesPerSession float64 `json:"avgPagesPerSession"`
	BounceRate         float64 `json:"bounceRate"`
	ConversionRate     float64 `json:"conversionRate"`
}
