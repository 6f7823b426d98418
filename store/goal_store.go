package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"analyticshub/api/models"
)

// GoalCollection holds the conversion goal definitions.
const GoalCollection = "goals"

// seedGoals is inserted once, the first time the registry initializes
// against an empty collection.
var seedGoals = []models.Goal{
	{Name: "Contact Form", Slug: "contact-form", GoalType: "form", TriggerKey: "contact_form_submit", Value: 50, Active: true},
	{Name: "ISO Demo Request", Slug: "iso-demo", GoalType: "form", TriggerKey: "iso_demo_request", Value: 200, Active: true},
	{Name: "SmartStart Application", Slug: "smartstart-application", GoalType: "form", TriggerKey: "smartstart_apply", Value: 500, Active: true},
	{Name: "Newsletter Signup", Slug: "newsletter", GoalType: "signup", TriggerKey: "newsletter_signup", Value: 10, Active: true},
	{Name: "Book a Call", Slug: "book-a-call", GoalType: "booking", TriggerKey: "book_call", Value: 150, Active: true},
}

// GoalStore manages conversion goal definitions and their counters.
type GoalStore struct {
	records *RecordStore
}

func NewGoalStore(records *RecordStore) *GoalStore {
	return &GoalStore{records: records}
}

// Seed inserts the default goals if the collection is empty. Calling it
// again is a no-op, so restarts never duplicate goals.
func (s *GoalStore) Seed() error {
	return s.records.Mutate(GoalCollection, func(records []Record) ([]Record, error) {
		if len(records) > 0 {
			return records, nil
		}
		now := time.Now().UTC()
		for _, goal := range seedGoals {
			goal.CreatedAt = now
			rec, err := ToRecord(goal)
			if err != nil {
				return nil, err
			}
			rec["id"] = NextID(records)
			records = append(records, rec)
		}
		log.Info().Int("count", len(records)).Msg("seeded default goals")
		return records, nil
	})
}

func (s *GoalStore) GetAllGoals() ([]models.Goal, error) {
	records, err := s.records.Read(GoalCollection)
	if err != nil {
		return nil, err
	}
	var goals []models.Goal
	if err := FromRecords(records, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// GetGoalBySlug returns nil when no goal carries the slug.
func (s *GoalStore) GetGoalBySlug(slug string) (*models.Goal, error) {
	rec, err := s.records.FindOne(GoalCollection,
		func(r Record) bool { return r["slug"] == slug },
	)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	var goal models.Goal
	if err := FromRecord(rec, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// CreateGoal inserts a new goal. Slugs are unique across the collection.
func (s *GoalStore) CreateGoal(goal models.Goal) (*models.Goal, error) {
	if goal.Slug == "" {
		return nil, fmt.Errorf("goal slug is required")
	}

	var created models.Goal
	err := s.records.Mutate(GoalCollection, func(records []Record) ([]Record, error) {
		for _, r := range records {
			if r["slug"] == goal.Slug {
				return nil, fmt.Errorf("goal with slug %q already exists", goal.Slug)
			}
		}
		goal.Conversions = 0
		goal.TotalValue = 0
		goal.CreatedAt = time.Now().UTC()
		rec, err := ToRecord(goal)
		if err != nil {
			return nil, err
		}
		rec["id"] = NextID(records)
		if err := FromRecord(rec, &created); err != nil {
			return nil, err
		}
		return append(records, rec), nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateGoal merges the patch into the goal with the slug. Identity and
// counter fields cannot be patched here; counters move only through
// RecordConversion.
func (s *GoalStore) UpdateGoal(slug string, patch Record) (*models.Goal, error) {
	for _, key := range []string{"id", "slug", "conversions", "totalValue", "createdAt"} {
		delete(patch, key)
	}

	updated, err := s.records.Update(GoalCollection,
		func(r Record) bool { return r["slug"] == slug },
		patch,
	)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, nil
	}
	return s.GetGoalBySlug(slug)
}

func (s *GoalStore) DeleteGoal(slug string) (bool, error) {
	removed, err := s.records.Delete(GoalCollection,
		func(r Record) bool { return r["slug"] == slug },
	)
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// RecordConversion increments the first active goal whose trigger key
// matches, adding the goal's value to its running total. Returns the
// converted goal, or nil when no goal matches.
func (s *GoalStore) RecordConversion(triggerKey string) (*models.Goal, error) {
	if triggerKey == "" {
		return nil, nil
	}

	var converted *models.Goal
	err := s.records.Mutate(GoalCollection, func(records []Record) ([]Record, error) {
		for i, r := range records {
			var goal models.Goal
			if err := FromRecord(r, &goal); err != nil {
				return nil, err
			}
			if !goal.Active || goal.TriggerKey != triggerKey {
				continue
			}

			goal.Conversions++
			goal.TotalValue += goal.Value
			goal.UpdatedAt = time.Now().UTC()

			rec, err := ToRecord(goal)
			if err != nil {
				return nil, err
			}
			records[i] = rec
			converted = &goal
			return records, nil
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return converted, nil
}

// GetConversionFunnel walks each session's events in time order and counts
// how many sessions completed the ordered steps. Step names are event
// types; a session counts for step i only if it performed steps 0..i in
// order.
func (s *GoalStore) GetConversionFunnel(steps []string, rng models.TimeRange) ([]models.FunnelStep, error) {
	if len(steps) == 0 {
		return []models.FunnelStep{}, nil
	}

	records, err := s.records.Read(EventCollection)
	if err != nil {
		return nil, err
	}
	var events []models.Event
	if err := FromRecords(records, &events); err != nil {
		return nil, err
	}

	bySession := make(map[string][]models.Event)
	for _, event := range events {
		if !rng.Contains(event.CreatedAt) {
			continue
		}
		bySession[event.SessionID] = append(bySession[event.SessionID], event)
	}

	counts := make([]int, len(steps))
	for _, sessionEvents := range bySession {
		sort.SliceStable(sessionEvents, func(i, j int) bool {
			return sessionEvents[i].CreatedAt.Before(sessionEvents[j].CreatedAt)
		})

		next := 0
		for _, event := range sessionEvents {
			if next < len(steps) && event.EventType == steps[next] {
				counts[next]++
				next++
			}
		}
	}

	funnel := make([]models.FunnelStep, len(steps))
	for i, step := range steps {
		funnel[i] = models.FunnelStep{Step: step, Sessions: counts[i]}
		if counts[0] > 0 {
			funnel[i].Rate = float64(counts[i]) / float64(counts[0]) * 100
		}
	}
	return funnel, nil
}

// GetGoalPerformance returns the goal's stored totals plus a conversion
// rate and a daily trend derived from trigger events in the range.
func (s *GoalStore) GetGoalPerformance(slug string, rng models.TimeRange) (*models.GoalPerformance, error) {
	goal, err := s.GetGoalBySlug(slug)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, nil
	}

	eventRecords, err := s.records.Read(EventCollection)
	if err != nil {
		return nil, err
	}
	var events []models.Event
	if err := FromRecords(eventRecords, &events); err != nil {
		return nil, err
	}

	totalSessions := make(map[string]struct{})
	convertingSessions := make(map[string]struct{})
	daily := make(map[time.Time]int)

	for _, event := range events {
		if !rng.Contains(event.CreatedAt) {
			continue
		}
		totalSessions[event.SessionID] = struct{}{}
		if event.EventType != goal.TriggerKey {
			continue
		}
		convertingSessions[event.SessionID] = struct{}{}
		daily[event.CreatedAt.UTC().Truncate(24*time.Hour)]++
	}

	perf := &models.GoalPerformance{Goal: *goal, Trend: []models.TrendPoint{}}
	if len(totalSessions) > 0 {
		perf.ConversionRate = float64(len(convertingSessions)) / float64(len(totalSessions)) * 100
	}
	for day, count := range daily {
		perf.Trend = append(perf.Trend, models.TrendPoint{Date: day, Conversions: count})
	}
	sort.Slice(perf.Trend, func(i, j int) bool { return perf.Trend[i].Date.Before(perf.Trend[j].Date) })

	return perf, nil
}
