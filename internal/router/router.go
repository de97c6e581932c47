// Package router wires the HTTP surface.  Patron-facing routes are gated by
// the patron key carried in the session itself; staff routes require a
// bearer token issued at login.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/openvenue/bartab/internal/handler"
	"github.com/openvenue/bartab/internal/middleware"
)

// Deps collects the handlers and configuration the routes need.
type Deps struct {
	Auth      *handler.AuthHandler
	Session   *handler.SessionHandler
	Tab       *handler.TabHandler
	Detection *handler.DetectionHandler
	Stream    *handler.StreamHandler
	JWTSecret string
}

// RegisterRoutes attaches all application routes to the Echo instance.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/health", handler.Health)

	v1 := e.Group("/v1")

	v1.POST("/auth/login", d.Auth.Login)

	// Patron-facing: QR entry, snapshot, payment-method webhook, stream.
	v1.POST("/sessions", d.Session.Create)
	v1.GET("/sessions/:id", d.Session.Get)
	v1.POST("/sessions/:id/payment-method", d.Session.AttachPaymentMethod)
	v1.GET("/sessions/:id/stream", d.Stream.SessionStream)

	// Detection ingest for HTTP scanners; broker scanners bypass HTTP.
	v1.POST("/detections", d.Detection.Ingest)

	// Staff terminals.
	staff := v1.Group("", middleware.StaffAuth(d.JWTSecret))
	staff.POST("/sessions/:id/items", d.Tab.AddItem)
	staff.DELETE("/sessions/:id/items/:item_id", d.Tab.RemoveItem)
	staff.POST("/sessions/:id/tip", d.Tab.SetTip)
	staff.POST("/sessions/:id/close", d.Session.Close)
	staff.POST("/sessions/:id/cancel", d.Session.Cancel)
	staff.GET("/venues/:id/staff/stream", d.Stream.StaffStream)
}
