package http

import (
	"github.com/labstack/echo/v4"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
)

type RouteConfig struct {
	Auth  echo.MiddlewareFunc
	Admin echo.MiddlewareFunc // nil disables /admin
}

func (h *Handler) RegisterRoutes(e *echo.Echo, m *metrics.Metrics, cfg RouteConfig) {
	e.GET("/healthz", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api/v1")
	api.GET("/events/:eventId/availability", h.GetAvailability)

	events := api.Group("/events/:eventId", cfg.Auth)
	events.POST("/queue", h.JoinQueue)
	events.GET("/queue", h.GetStatus)
	events.DELETE("/queue", h.LeaveQueue)
	events.POST("/purchase", h.Purchase)

	api.GET("/me/tickets", h.ListMyTickets, cfg.Auth)

	if cfg.Admin != nil {
		admin := api.Group("/admin", cfg.Admin)
		admin.POST("/events", h.CreateEvent)
		admin.POST("/categories/:categoryId/restock", h.Restock)
		admin.POST("/categories/:categoryId/reconcile", h.Reconcile)
	}
}
