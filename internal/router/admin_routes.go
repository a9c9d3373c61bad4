package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// RegisterAdmin wires the event administration routes under /v1/admin.
// Only ADMIN tokens pass.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))

	g.GET("/dashboard", a.Dashboard)
	g.POST("/events", a.CreateEvent)
	g.PUT("/events/:id/pricing", a.SetPricing)
	g.POST("/events/:id/seats", a.EnsureSeats)
	g.GET("/events/:id/bookings", a.Bookings)
	g.DELETE("/events/:id", a.DeleteEvent)
}
