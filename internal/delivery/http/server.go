package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vogiaan1904/ticketbottle-boxoffice/config"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

func NewServer(cfg config.ServerConfig, h *Handler, p tokenParser, m *metrics.Metrics, l logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	e.Use(Recover(m, l))
	e.Use(RequestLogger(l))

	rc := RouteConfig{Auth: BearerAuth(p)}
	if cfg.AdminToken != "" {
		rc.Admin = AdminAuth(cfg.AdminToken)
	}
	h.RegisterRoutes(e, m, rc)

	return e
}
