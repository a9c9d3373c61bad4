package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
)

// RegisterCustomer wires the booking session and order history routes.
// They require a valid access token and are rate limited per user.
func RegisterCustomer(e *echo.Echo, s *handler.SessionHandler, o *handler.OrderHandler, jwtSecret string, limiter *middleware.RateLimiter) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(bookingRoles...),
		limiter.Middleware(),
	)

	g.GET("/events/:id/session", s.Get)
	g.POST("/events/:id/session", s.Open)
	g.DELETE("/events/:id/session", s.Abandon)
	g.POST("/events/:id/session/selection", s.Toggle)
	g.POST("/events/:id/session/cart", s.AddToCart)
	g.DELETE("/events/:id/session/cart", s.ClearCart)
	g.POST("/events/:id/session/checkout", s.Checkout)

	g.GET("/orders", o.ListOrders)
	g.GET("/orders/:id", o.GetOrder)
}
