package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/broadcast"
	"github.com/openvenue/bartab/internal/middleware"
	"github.com/openvenue/bartab/internal/store"
)

// StreamHandler bridges broadcaster topics onto server-sent events.  The
// stream is best-effort by contract: a client that reconnects re-fetches the
// snapshot via GET /v1/sessions/:id rather than expecting replay.
type StreamHandler struct {
	Bus      broadcast.Broadcaster
	Sessions store.SessionStore
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(bus broadcast.Broadcaster, sessions store.SessionStore) *StreamHandler {
	return &StreamHandler{Bus: bus, Sessions: sessions}
}

// SessionStream handles GET /v1/sessions/:id/stream?key=… for the patron's
// device.  The patron key issued at QR scan gates access to the topic.
func (h *StreamHandler) SessionStream(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	s, err := h.Sessions.SessionByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if c.QueryParam("key") != s.PatronKey {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid patron key"})
	}
	return h.serve(c, broadcast.SessionTopic(id))
}

// StaffStream handles GET /v1/venues/:id/staff/stream for bartender
// terminals.  StaffAuth has already run; the venue claim must match the
// requested venue.
func (h *StreamHandler) StaffStream(c echo.Context) error {
	venueID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || venueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	claim, ok := middleware.VenueFromClaims(c)
	if !ok || claim != venueID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "wrong venue"})
	}
	return h.serve(c, broadcast.StaffTopic(venueID))
}

// serve subscribes to the topic and relays messages as SSE until the client
// disconnects.
func (h *StreamHandler) serve(c echo.Context, topic string) error {
	msgs, cancel, err := h.Bus.Subscribe(c.Request().Context(), topic)
	if err != nil {
		return writeError(c, err)
	}
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			data, err := json.Marshal(echo.Map{"topic": m.Topic, "payload": json.RawMessage(m.Payload)})
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", m.Event, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
