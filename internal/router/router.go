// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/handler"
)

// Deps carries everything RegisterRoutes mounts.  RateLimit and Cache may
// be nil to disable them; Metrics may be nil to skip /metrics.
type Deps struct {
	Restaurants  *handler.RestaurantHandler
	Reservations *handler.ReservationHandler
	Assistant    *handler.AssistantHandler

	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	Metrics   http.Handler
}

// RegisterRoutes registers the health and metrics endpoints at the top
// level and the API under /v1.
func RegisterRoutes(e *echo.Echo, d Deps) {
	if e.Validator == nil {
		e.Validator = handler.NewValidator()
	}
	e.GET("/healthz", handler.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	v1 := e.Group("/v1")
	if d.RateLimit != nil {
		v1.Use(d.RateLimit)
	}
	registerRestaurants(v1, d)
	registerReservations(v1, d.Reservations)
	registerAssistant(v1, d.Assistant)
}

// The catalog never changes after startup, so its reads may be cached.
// Availability depends on live bookings and is never cached.
func registerRestaurants(g *echo.Group, d Deps) {
	var cached []echo.MiddlewareFunc
	if d.Cache != nil {
		cached = append(cached, d.Cache)
	}
	r := d.Restaurants
	g.GET("/restaurants", r.Search, cached...)
	g.GET("/restaurants/recommendations", r.Recommend)
	g.GET("/restaurants/:id", r.Get, cached...)
	g.GET("/restaurants/:id/availability", r.Availability)
}

func registerReservations(g *echo.Group, h *handler.ReservationHandler) {
	g.POST("/reservations", h.Create)
	g.GET("/reservations", h.ListByEmail)
	g.GET("/reservations/:id", h.Get)
	g.PATCH("/reservations/:id", h.Modify)
	g.DELETE("/reservations/:id", h.Cancel)
}

func registerAssistant(g *echo.Group, h *handler.AssistantHandler) {
	g.GET("/tools", h.ListTools)
	g.POST("/tools/:name", h.CallTool)
	g.POST("/chat", h.Chat)
	g.DELETE("/chat/:session_id", h.ResetChat)
}
