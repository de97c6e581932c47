// Package handler contains the thin HTTP delivery layer: detection ingest,
// the QR session entry, staff tab actions, and the SSE bridges onto the
// broadcaster.  Handlers validate, call into the engine, and translate
// sentinel errors to statuses; no business logic lives here.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/ledger"
	"github.com/openvenue/bartab/internal/locks"
	"github.com/openvenue/bartab/internal/store"
)

// writeError maps engine errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, store.ErrVenueNotFound),
		errors.Is(err, store.ErrBeaconNotFound),
		errors.Is(err, store.ErrZoneNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ledger.ErrInvalidItem):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, ledger.ErrSessionFinal):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, locks.ErrTimeout):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session busy, try again"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
