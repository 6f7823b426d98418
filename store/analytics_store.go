package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"analyticshub/api/models"
)

// Collection names used by the tracking pipeline.
const (
	EventCollection   = "analytics_events"
	SessionCollection = "analytics_sessions"
)

// ErrMissingSessionID is returned when a tracked event carries no session.
var ErrMissingSessionID = errors.New("session id is required")

// EventForwarder publishes ingested events to an external pipeline.
// Forward failures never affect the ingestion result.
type EventForwarder interface {
	Forward(ctx context.Context, event models.Event) error
}

// AnalyticsStore ingests tracking events and maintains the per-session
// aggregate records. Session upserts and conversion increments go through
// RecordStore.Mutate, so concurrent events for the same session never lose
// an increment.
type AnalyticsStore struct {
	records   *RecordStore
	goals     *GoalStore
	forwarder EventForwarder
}

func NewAnalyticsStore(records *RecordStore, goals *GoalStore, forwarder EventForwarder) *AnalyticsStore {
	return &AnalyticsStore{
		records:   records,
		goals:     goals,
		forwarder: forwarder,
	}
}

// TrackEvent appends the event to the event collection and synchronously
// updates the owning session before returning. Custom events whose type
// matches an active goal's trigger key convert that goal and flag the
// session as converted. Returns the assigned event id.
func (s *AnalyticsStore) TrackEvent(ctx context.Context, event models.Event) (int, error) {
	if event.SessionID == "" {
		return 0, ErrMissingSessionID
	}
	if event.EventType == "" {
		event.EventType = models.EventTypePageView
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	rec, err := ToRecord(event)
	if err != nil {
		return 0, err
	}
	delete(rec, "id")

	stored, err := s.records.Insert(EventCollection, rec)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	eventID := RecordID(stored)

	if err := s.upsertSession(event); err != nil {
		// The event is already persisted; there is no rollback across
		// collections, so surface the session failure to the caller.
		return eventID, fmt.Errorf("failed to update session %q: %w", event.SessionID, err)
	}

	if event.EventType != models.EventTypePageView && s.goals != nil {
		goal, err := s.goals.RecordConversion(event.EventType)
		if err != nil {
			log.Error().Err(err).Str("trigger", event.EventType).Msg("goal conversion dispatch failed")
		} else if goal != nil {
			if err := s.markSessionConverted(event.SessionID); err != nil {
				log.Error().Err(err).Str("session_id", event.SessionID).Msg("failed to flag session as converted")
			}
		}
	}

	if s.forwarder != nil {
		fwd := event
		fwd.ID = eventID
		go func() {
			fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.forwarder.Forward(fctx, fwd); err != nil {
				log.Error().Err(err).Int("event_id", eventID).Msg("failed to forward event")
			}
		}()
	}

	return eventID, nil
}

// TrackPageView is TrackEvent with the event type forced to page_view.
func (s *AnalyticsStore) TrackPageView(ctx context.Context, event models.Event) (int, error) {
	event.EventType = models.EventTypePageView
	return s.TrackEvent(ctx, event)
}

// upsertSession creates the session record on the first event for a
// session id and updates counters on every later one. Runs as a single
// read-modify-write under the sessions collection lock.
func (s *AnalyticsStore) upsertSession(event models.Event) error {
	isPageView := event.EventType == models.EventTypePageView
	ts := event.CreatedAt

	return s.records.Mutate(SessionCollection, func(records []Record) ([]Record, error) {
		for i, r := range records {
			if r["sessionId"] != event.SessionID {
				continue
			}

			var session models.Session
			if err := FromRecord(r, &session); err != nil {
				return nil, err
			}

			if ts.After(session.LastSeen) {
				session.LastSeen = ts
			}
			if isPageView {
				session.PageViews++
				if event.PageURL != "" {
					session.ExitPage = event.PageURL
				}
			}
			if session.VisitorID == "" {
				session.VisitorID = event.VisitorID
			}
			if session.DeviceType == "" {
				session.DeviceType = event.DeviceType
			}
			if session.Country == "" {
				session.Country = event.Country
				session.City = event.City
			}
			session.UpdatedAt = time.Now().UTC()

			updated, err := ToRecord(session)
			if err != nil {
				return nil, err
			}
			records[i] = updated
			return records, nil
		}

		session := models.Session{
			SessionID:  event.SessionID,
			VisitorID:  event.VisitorID,
			FirstSeen:  ts,
			LastSeen:   ts,
			EntryPage:  event.PageURL,
			DeviceType: event.DeviceType,
			Country:    event.Country,
			City:       event.City,
			CreatedAt:  time.Now().UTC(),
		}
		if isPageView {
			session.PageViews = 1
			session.ExitPage = event.PageURL
		}

		rec, err := ToRecord(session)
		if err != nil {
			return nil, err
		}
		rec["id"] = NextID(records)
		return append(records, rec), nil
	})
}

func (s *AnalyticsStore) markSessionConverted(sessionID string) error {
	_, err := s.records.Update(SessionCollection,
		func(r Record) bool { return r["sessionId"] == sessionID },
		Record{"converted": true},
	)
	return err
}

// GetSession looks up one session by its session id, returning nil when
// no event has been seen for it.
func (s *AnalyticsStore) GetSession(sessionID string) (*models.Session, error) {
	rec, err := s.records.FindOne(SessionCollection,
		func(r Record) bool { return r["sessionId"] == sessionID },
	)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	var session models.Session
	if err := FromRecord(rec, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionStats aggregates across sessions whose first visit falls in
// the range. Bounce means a session with at most one page view.
func (s *AnalyticsStore) GetSessionStats(rng models.TimeRange) (models.SessionStats, error) {
	records, err := s.records.Read(SessionCollection)
	if err != nil {
		return models.SessionStats{}, err
	}

	var sessions []models.Session
	if err := FromRecords(records, &sessions); err != nil {
		return models.SessionStats{}, err
	}

	stats := models.SessionStats{}
	visitors := make(map[string]struct{})
	var totalDuration float64
	var totalPages, bounced, converted int

	for _, session := range sessions {
		if !rng.Contains(session.FirstSeen) {
			continue
		}
		stats.TotalSessions++
		if session.VisitorID != "" {
			visitors[session.VisitorID] = struct{}{}
		}
		totalDuration += session.LastSeen.Sub(session.FirstSeen).Seconds()
		totalPages += session.PageViews
		if session.PageViews <= 1 {
			bounced++
		}
		if session.Converted {
			converted++
		}
	}

	stats.UniqueVisitors = len(visitors)
	if stats.TotalSessions > 0 {
		n := float64(stats.TotalSessions)
		stats.AvgDuration = totalDuration / n
		stats.AvgPagesPerSession = float64(totalPages) / n
		stats.BounceRate = float64(bounced) / n * 100
		stats.ConversionRate = float64(converted) / n * 100
	}
	return stats, nil
}
