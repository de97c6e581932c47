package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/queue"
	"github.com/openvenue/bartab/internal/service"
)

// DetectionHandler is the HTTP ingest path for detection events, for
// scanners that speak HTTP instead of the broker.  The payload matches the
// queue message exactly.
type DetectionHandler struct {
	Pipeline *service.Pipeline
}

// NewDetectionHandler constructs a DetectionHandler.
func NewDetectionHandler(p *service.Pipeline) *DetectionHandler {
	return &DetectionHandler{Pipeline: p}
}

// Ingest handles POST /v1/detections.  Accepted events return 202; dropped
// noise (unknown beacons, stale events) also returns 202 because the
// scanner cannot act on the distinction.
func (h *DetectionHandler) Ingest(c echo.Context) error {
	var msg queue.DetectionMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg.SessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id is required"})
	}
	if msg.ObservedAt.IsZero() {
		msg.ObservedAt = time.Now().UTC()
	}
	if err := h.Pipeline.HandleDetection(c.Request().Context(), msg.Event()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}
