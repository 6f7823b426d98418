package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"analyticshub/api/enricher"
	"analyticshub/api/models"
	"analyticshub/api/store"
	"analyticshub/api/utils"
)

type TrackHandlers struct {
	Analytics *store.AnalyticsStore
	Enricher  *enricher.Enricher
}

func NewTrackHandlers(analytics *store.AnalyticsStore, e *enricher.Enricher) *TrackHandlers {
	return &TrackHandlers{
		Analytics: analytics,
		Enricher:  e,
	}
}

// TrackEvent ingests one tracking event. The session record is updated
// before the response is written.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var event models.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	h.ingest(c, event)
}

// TrackPageView is TrackEvent with the event type forced to page_view.
func (h *TrackHandlers) TrackPageView(c *gin.Context) {
	var event models.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}
	event.EventType = models.EventTypePageView
	h.ingest(c, event)
}

func (h *TrackHandlers) ingest(c *gin.Context, event models.Event) {
	if h.Enricher != nil {
		h.Enricher.Apply(&event, c.GetHeader("User-Agent"), c.ClientIP())
	}

	eventID, err := h.Analytics.TrackEvent(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, store.ErrMissingSessionID) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "sessionId is required"})
			return
		}
		log.Error().Err(err).Msg("failed to track event")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to track event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "eventId": eventID})
}

// GetIdentity hands the tracker snippet fresh random identifiers. The
// visitor id is meant to be persisted client-side across sessions.
func (h *TrackHandlers) GetIdentity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessionId": utils.NewSessionID(),
		"visitorId": utils.NewVisitorID(),
	})
}

// GetSession returns the aggregate record for one session id.
func (h *TrackHandlers) GetSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	session, err := h.Analytics.GetSession(sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, session)
}
