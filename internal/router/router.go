package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth exposes the login endpoint under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
}

// RegisterPublic registers the unauthenticated browse endpoints.  Every
// route goes through the seat-map cache; ledger mutations invalidate it.
func RegisterPublic(e *echo.Echo, p *handler.EventHandler, cache *middleware.SeatMapCache) {
	g := e.Group("/v1/events", cache.Middleware())
	g.GET("", p.ListEvents)
	g.GET("/search", p.SearchEvents)
	g.GET("/:id", p.GetEvent)
	g.GET("/:id/seats", p.ListSeats)
	g.GET("/:id/availability", p.Availability)
}

// bookingRoles may use the booking flow.  Admins can book too.
var bookingRoles = []string{model.RoleUser, model.RoleAdmin}
