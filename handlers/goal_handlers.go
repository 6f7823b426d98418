package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"analyticshub/api/models"
	"analyticshub/api/store"
)

type GoalHandlers struct {
	Goals *store.GoalStore
}

func NewGoalHandlers(goals *store.GoalStore) *GoalHandlers {
	return &GoalHandlers{Goals: goals}
}

func (h *GoalHandlers) ListGoals(c *gin.Context) {
	goals, err := h.Goals.GetAllGoals()
	if err != nil {
		log.Error().Err(err).Msg("failed to list goals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve goals"})
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (h *GoalHandlers) GetGoal(c *gin.Context) {
	slug := c.Param("slug")

	goal, err := h.Goals.GetGoalBySlug(slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("failed to load goal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve goal"})
		return
	}
	if goal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandlers) CreateGoal(c *gin.Context) {
	var goal models.Goal
	if err := c.ShouldBindJSON(&goal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	created, err := h.Goals.CreateGoal(goal)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
			return
		}
		log.Error().Err(err).Str("slug", goal.Slug).Msg("failed to create goal")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create goal"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *GoalHandlers) UpdateGoal(c *gin.Context) {
	slug := c.Param("slug")

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	goal, err := h.Goals.UpdateGoal(slug, patch)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("failed to update goal")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update goal"})
		return
	}
	if goal == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Goal not found"})
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandlers) DeleteGoal(c *gin.Context) {
	slug := c.Param("slug")

	removed, err := h.Goals.DeleteGoal(slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("failed to delete goal")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete goal"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Goal not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GoalHandlers) GetGoalPerformance(c *gin.Context) {
	slug := c.Param("slug")
	rng, ok := parseTimeRange(c)
	if !ok {
		return
	}

	perf, err := h.Goals.GetGoalPerformance(slug, rng)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("failed to compute goal performance")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve goal performance"})
		return
	}
	if perf == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
		return
	}
	c.JSON(http.StatusOK, perf)
}

type funnelRequest struct {
	Steps []string `json:"steps" binding:"required,min=1"`
}

// GetConversionFunnel computes an ordered funnel over the event log. Step
// names are event types; a session advances a step only after completing
// all earlier ones.
func (h *GoalHandlers) GetConversionFunnel(c *gin.Context) {
	var req funnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "steps is required and must be a non-empty list"})
		return
	}
	rng, ok := parseTimeRange(c)
	if !ok {
		return
	}

	funnel, err := h.Goals.GetConversionFunnel(req.Steps, rng)
	if err != nil {
		log.Error().Err(err).Msg("failed to compute conversion funnel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversion funnel"})
		return
	}
	c.JSON(http.StatusOK, funnel)
}
