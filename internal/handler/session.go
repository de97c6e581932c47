package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/ledger"
	"github.com/openvenue/bartab/internal/session"
	"github.com/openvenue/bartab/internal/store"
)

// SessionHandler serves the QR entry path and staff lifecycle actions.
type SessionHandler struct {
	Machine  *session.Machine
	Sessions store.SessionStore
	Venues   store.VenueStore
	Ledger   *ledger.Ledger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(m *session.Machine, sessions store.SessionStore, venues store.VenueStore, led *ledger.Ledger) *SessionHandler {
	return &SessionHandler{Machine: m, Sessions: sessions, Venues: venues, Ledger: led}
}

// Create handles POST /v1/sessions — the patron scanned a table code.  The
// session starts pending; presence or an attached payment method activates
// it later.
func (h *SessionHandler) Create(c echo.Context) error {
	var body struct {
		VenueID    uint64 `json:"venue_id"`
		TableLabel string `json:"table"`
	}
	if err := c.Bind(&body); err != nil || body.VenueID == 0 || body.TableLabel == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id and table are required"})
	}
	if _, err := h.Venues.VenueByID(c.Request().Context(), body.VenueID); err != nil {
		return writeError(c, err)
	}

	s, err := h.Machine.Create(c.Request().Context(), body.VenueID, body.TableLabel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session_id": s.ID,
		"patron_key": s.PatronKey,
		"status":     s.Status,
	})
}

// Get handles GET /v1/sessions/:id — the authoritative snapshot the lossy
// broadcast stream is re-synced from.
func (h *SessionHandler) Get(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	s, err := h.Sessions.SessionByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	items, err := h.Ledger.Items(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session": s, "items": items})
}

// AttachPaymentMethod handles POST /v1/sessions/:id/payment-method, called
// by the payments collaborator's webhook once a method is on file.
func (h *SessionHandler) AttachPaymentMethod(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	if err := h.Machine.AttachPaymentMethod(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Close handles POST /v1/sessions/:id/close — the staff manual close.
func (h *SessionHandler) Close(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	if err := h.Machine.ManualClose(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Cancel handles POST /v1/sessions/:id/cancel.
func (h *SessionHandler) Cancel(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	if err := h.Machine.Cancel(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func sessionID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}
