package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"analyticshub/api/store"
	"analyticshub/api/utils"
)

type StatsHandlers struct {
	Stats     *store.StatsStore
	Analytics *store.AnalyticsStore
}

func NewStatsHandlers(stats *store.StatsStore, analytics *store.AnalyticsStore) *StatsHandlers {
	return &StatsHandlers{
		Stats:     stats,
		Analytics: analytics,
	}
}

func (h *StatsHandlers) GetActiveVisitors(c *gin.Context) {
	result, err := h.Stats.GetActiveVisitors()
	if err != nil {
		log.Error().Err(err).Msg("failed to compute active visitors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve active visitors"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StatsHandlers) GetDashboardStats(c *gin.Context) {
	rng, ok := parseTimeRange(c)
	if !ok {
		return
	}

	stats, err := h.Stats.GetDashboardStats(rng)
	if err != nil {
		log.Error().Err(err).Msg("failed to compute dashboard stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandlers) GetTopPages(c *gin.Context) {
	rng, ok := parseTimeRange(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c, store.DefaultTopPagesLimit)
	if !ok {
		return
	}

	pages, err := h.Stats.GetTopPages(rng, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to compute top pages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top pages"})
		return
	}
	c.JSON(http.StatusOK, pages)
}

func (h *StatsHandlers) GetTrafficOverTime(c *gin.Context) {
	rng, ok := parseTimeRange(c)
	if !ok {
		return
	}
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be 'day' or 'hour'"})
		return
	}

	points, err := h.Stats.GetTrafficOverTime(rng, interval)
	if err != nil {
		log.Error().Err(err).Msg("failed to compute traffic over time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve traffic statistics"})
		return
	}
	c.JSON(http.StatusOK, points)
}

func (h *StatsHandlers) GetRecentEvents(c *gin.Context) {
	limit, ok := parseLimit(c, store.DefaultRecentEventsLimit)
	if !ok {
		return
	}

	events, err := h.Stats.GetRecentEvents(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load recent events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recent events"})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *StatsHandlers) GetSessionStats(c *gin.Context) {
	rng, ok := parseTimeRange(c)
	if !ok {
		return
	}

	stats, err := h.Analytics.GetSessionStats(rng)
	if err != nil {
		log.Error().Err(err).Msg("failed to compute session stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
