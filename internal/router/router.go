// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinealfa/boleteria/internal/handler"
)

// RegisterRoutes registers the health check on the provided Echo
// instance.  Load balancers and monitoring probe this endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterCheckout registers the checkout flow under /v1.  The rate
// limiter guards only the write endpoints that contend for seats; the
// read endpoints (availability, quote, audit) stay unthrottled so seat
// maps can poll freely.
func RegisterCheckout(e *echo.Echo, p *handler.PaymentHandler, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1")

	g.POST("/quote", p.Quote)
	g.GET("/showtimes/seats", p.Availability)

	g.POST("/showtimes/hold", p.Hold, rateLimit)
	g.DELETE("/showtimes/hold", p.ReleaseHold)
	g.POST("/payments/confirm", p.Confirm, rateLimit)

	g.GET("/transactions", p.ListTransactions)
	g.GET("/transactions/:id", p.GetTransaction)
}
