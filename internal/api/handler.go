package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pockettune/radiosync/internal/engine"
	"github.com/pockettune/radiosync/internal/library"
	"github.com/pockettune/radiosync/internal/station"
)

// Handler serves the engine surface to UI/application code.
type Handler struct {
	library *library.Library
	engine  *engine.Engine
	userID  string
	logger  *slog.Logger
}

// NewHandler creates a handler bound to one signed-in user's session.
func NewHandler(lib *library.Library, eng *engine.Engine, userID string, logger *slog.Logger) *Handler {
	return &Handler{
		library: lib,
		engine:  eng,
		userID:  userID,
		logger:  logger,
	}
}

type stationRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

// GetStations handles GET /api/stations.
func (h *Handler) GetStations(c *gin.Context) {
	stations, err := h.library.List()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to read stations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stations": stations})
}

// PostStation handles POST /api/stations.
func (h *Handler) PostStation(c *gin.Context) {
	var req stationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name and url are required"})
		return
	}

	s, err := h.library.Add(c.Request.Context(), req.Name, req.URL)
	if err != nil && s.ID == "" {
		// Local write failed; nothing was stored.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to store station"})
		return
	}
	if err != nil {
		// Stored locally, push failed; the queue and state machine own the
		// recovery from here.
		h.logger.Warn("station stored locally, remote push failed", "station_id", s.ID, "error", err)
	}
	c.JSON(http.StatusCreated, s)
}

// PutStation handles PUT /api/stations/:id.
func (h *Handler) PutStation(c *gin.Context) {
	var req stationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name and url are required"})
		return
	}

	s := station.Station{ID: c.Param("id"), Name: req.Name, URL: req.URL}
	err := h.library.Update(c.Request.Context(), s)
	switch {
	case errors.Is(err, library.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown station id"})
	case err != nil:
		h.logger.Warn("station updated locally, remote push failed", "station_id", s.ID, "error", err)
		fallthrough
	default:
		c.JSON(http.StatusOK, s)
	}
}

// DeleteStation handles DELETE /api/stations/:id.
func (h *Handler) DeleteStation(c *gin.Context) {
	err := h.library.Remove(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, library.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown station id"})
	case err != nil:
		h.logger.Warn("station removed locally, remote push failed", "station_id", c.Param("id"), "error", err)
		fallthrough
	default:
		c.Status(http.StatusNoContent)
	}
}

// GetSyncStatus handles GET /api/sync/status.
func (h *Handler) GetSyncStatus(c *gin.Context) {
	pending, err := h.engine.Queue().Len()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to read pending queue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":   h.engine.State(),
		"online":  h.engine.IsOnline(),
		"pending": pending,
	})
}

// PostSync handles POST /api/sync: the manual retry behind the "Sync failed"
// indicator. It runs a full reconciliation pass and stores the merged result.
func (h *Handler) PostSync(c *gin.Context) {
	local, err := h.library.List()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to read stations"})
		return
	}

	result := h.engine.SyncStations(c.Request.Context(), local, h.userID)
	if result.Success {
		if err := h.library.Replace(result.Stations); err != nil {
			h.logger.Error("failed to store merged stations", "error", err)
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{
		"success":  result.Success,
		"error":    result.Err,
		"state":    h.engine.State(),
		"stations": result.Stations,
	})
}

// Resync returns the engine's post-reconnect full-sync callback, wired into
// the network listener at startup.
func (h *Handler) Resync() engine.ResyncFunc {
	return func(ctx context.Context) {
		local, err := h.library.List()
		if err != nil {
			h.logger.Error("resync skipped, failed to read stations", "error", err)
			return
		}
		result := h.engine.SyncStations(ctx, local, h.userID)
		if result.Success {
			if err := h.library.Replace(result.Stations); err != nil {
				h.logger.Error("failed to store merged stations", "error", err)
			}
		}
	}
}
