package models

import "time"

// Goal is a named conversion definition. An ingested custom event whose
// type equals TriggerKey converts the goal (first active match wins).
type Goal struct {
	ID          int       `json:"id,omitempty"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	GoalType    string    `json:"type"`
	TriggerKey  string    `json:"triggerKey"`
	Value       float64   `json:"value"`
	Conversions int       `json:"conversions"`
	TotalValue  float64   `json:"totalValue"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// FunnelStep reports how many sessions completed the ordered steps up to
// and including this one. Rate is relative to the first step.
type FunnelStep struct {
	Step     string  `json:"step"`
	Sessions int     `json:"sessions"`
	Rate     float64 `json:"rate"`
}

// TrendPoint is one day of goal conversion activity.
type TrendPoint struct {
	Date        time.Time `json:"date"`
	Conversions int       `json:"conversions"`
}

type GoalPerformance struct {
	Goal           Goal         `json:"goal"`
	ConversionRate float64      `json:"conversionRate"`
	Trend          []TrendPoint `json:"trend"`
}
