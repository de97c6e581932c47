package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/ledger"
)

// TabHandler serves staff item mutations.  The ledger serializes them per
// session; the handler only validates shape and maps errors.
type TabHandler struct {
	Ledger *ledger.Ledger
}

// NewTabHandler constructs a TabHandler.
func NewTabHandler(led *ledger.Ledger) *TabHandler {
	return &TabHandler{Ledger: led}
}

// AddItem handles POST /v1/sessions/:id/items.  The total price is computed
// by the ledger; any total in the request body is ignored.
func (h *TabHandler) AddItem(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Name       string `json:"name"`
		PriceCents uint32 `json:"price_cents"`
		Quantity   uint32 `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var addedBy *uint64
	if v, ok := c.Get("staff_id").(float64); ok {
		id := uint64(v)
		addedBy = &id
	}

	item, subtotal, err := h.Ledger.AddItem(c.Request().Context(), id, body.Name, body.PriceCents, body.Quantity, addedBy)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": item, "subtotal_cents": subtotal})
}

// RemoveItem handles DELETE /v1/sessions/:id/items/:item_id.
func (h *TabHandler) RemoveItem(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
	if err != nil || itemID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	subtotal, err := h.Ledger.RemoveItem(c.Request().Context(), id, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"subtotal_cents": subtotal})
}

// SetTip handles POST /v1/sessions/:id/tip.
func (h *TabHandler) SetTip(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		TipCents uint32 `json:"tip_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	total, err := h.Ledger.SetTip(c.Request().Context(), id, body.TipCents)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total_cents": total})
}
