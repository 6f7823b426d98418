package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"analyticshub/api/models"
)

// parseTimeRange reads optional start/end RFC3339 query parameters.
// Absent parameters leave that side of the range unbounded. On a malformed
// timestamp it writes the 400 response and reports false.
func parseTimeRange(c *gin.Context) (models.TimeRange, bool) {
	var rng models.TimeRange
	var err error

	if startParam := c.Query("start"); startParam != "" {
		rng.Start, err = time.Parse(time.RFC3339, startParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return rng, false
		}
	}

	if endParam := c.Query("end"); endParam != "" {
		rng.End, err = time.Parse(time.RFC3339, endParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return rng, false
		}
	}

	return rng, true
}

// parseLimit reads an optional positive integer limit query parameter,
// falling back to def. Writes the 400 response and reports false on bad
// input.
func parseLimit(c *gin.Context, def int) (int, bool) {
	limitParam := c.Query("limit")
	if limitParam == "" {
		return def, true
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
		return 0, false
	}
	return limit, true
}
