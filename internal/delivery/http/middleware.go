package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/auth"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/response"
)

type tokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// BearerAuth puts the subject of a valid access token into the request
// context. Requests without one are rejected.
func BearerAuth(p tokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return response.Error(c, delivery.HTTPError(errs.ErrUnauthenticated))
			}

			uid, err := p.ParseAccessToken(token)
			if err != nil {
				return response.Error(c, delivery.HTTPError(errs.ErrUnauthenticated))
			}

			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithUserID(req.Context(), uid)))
			return next(c)
		}
	}
}

// AdminAuth accepts requests bearing the static admin token.
func AdminAuth(token string) echo.MiddlewareFunc {
	return echoMw.KeyAuthWithConfig(echoMw.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return response.Error(c, delivery.HTTPError(errs.ErrUnauthenticated))
		},
	})
}

func RequestLogger(l logger.Logger) echo.MiddlewareFunc {
	return echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			l.Infow(c.Request().Context(), "HTTP request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	})
}

func Recover(m *metrics.Metrics, l logger.Logger) echo.MiddlewareFunc {
	return echoMw.RecoverWithConfig(echoMw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			m.PanicsRecovered.Inc()
			l.Errorw(c.Request().Context(), "Recovered from panic",
				"error", err,
				"stack", string(stack),
			)
			return err
		},
	})
}

// ErrorHandler renders errors that escape handlers, such as unknown routes,
// in the same envelope as handler errors.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	if he, ok := err.(*echo.HTTPError); ok && he.Code != http.StatusInternalServerError {
		_ = response.Error(c, he)
		return
	}

	_ = response.Error(c, delivery.HTTPError(err))
}
