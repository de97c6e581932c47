package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health handles GET /health for load balancers and monitors.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
