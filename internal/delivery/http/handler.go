package http

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/service"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/response"
)

type Handler struct {
	svc     service.BoxOfficeService
	session service.AuthSession
	ready   func(ctx context.Context) error
	v       *validator.Validate
	l       logger.Logger
}

// NewHandler builds the HTTP handler. ready backs /healthz and may be nil.
func NewHandler(svc service.BoxOfficeService, session service.AuthSession, ready func(ctx context.Context) error, l logger.Logger) *Handler {
	return &Handler{
		svc:     svc,
		session: session,
		ready:   ready,
		v:       validator.New(),
		l:       l,
	}
}

func (h *Handler) fail(c echo.Context, err error) error {
	if delivery.IsInternal(err) {
		h.l.Errorw(c.Request().Context(), "Request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}
	return response.Error(c, delivery.HTTPError(err))
}

func (h *Handler) currentUser(c echo.Context) (string, error) {
	uid, ok := h.session.CurrentUserID(c.Request().Context())
	if !ok {
		return "", errs.ErrUnauthenticated
	}
	return uid, nil
}

func (h *Handler) HealthCheck(c echo.Context) error {
	if h.ready != nil {
		if err := h.ready(c.Request().Context()); err != nil {
			h.l.Warnf(c.Request().Context(), "delivery.http.Handler.HealthCheck: %v", err)
			return c.JSON(http.StatusServiceUnavailable, healthResponse{
				Status:  "unavailable",
				Service: "boxoffice-service",
			})
		}
	}

	return c.JSON(http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: "boxoffice-service",
	})
}

func (h *Handler) JoinQueue(c echo.Context) error {
	uid, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}

	out, err := h.svc.JoinQueue(c.Request().Context(), c.Param("eventId"), uid)
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusCreated, out)
}

func (h *Handler) GetStatus(c echo.Context) error {
	uid, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}

	st, err := h.svc.GetStatus(c.Request().Context(), c.Param("eventId"), uid)
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusOK, st)
}

func (h *Handler) LeaveQueue(c echo.Context) error {
	uid, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.svc.LeaveQueue(c.Request().Context(), c.Param("eventId"), uid); err != nil {
		return h.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Purchase(c echo.Context) error {
	uid, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body"))
	}
	if req.Quantity < 1 {
		return h.fail(c, errs.ErrInvalidQuantity)
	}
	if err := h.v.Struct(req); err != nil {
		return h.fail(c, err)
	}

	res, err := h.svc.Purchase(c.Request().Context(), req.toInput(c.Param("eventId"), uid))
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusCreated, toPurchaseResponse(res))
}

func (h *Handler) GetAvailability(c echo.Context) error {
	av, err := h.svc.GetAvailability(c.Request().Context(), c.Param("eventId"))
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusOK, av)
}

func (h *Handler) ListMyTickets(c echo.Context) error {
	uid, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}

	tickets, err := h.svc.ListUserTickets(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusOK, tickets)
}

func (h *Handler) CreateEvent(c echo.Context) error {
	var in service.CreateEventInput
	if err := c.Bind(&in); err != nil {
		return response.Error(c, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body"))
	}
	if err := h.v.Struct(in); err != nil {
		return h.fail(c, err)
	}

	ev, err := h.svc.CreateEvent(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusCreated, ev)
}

func (h *Handler) Restock(c echo.Context) error {
	var req restockRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body"))
	}
	if req.Quantity < 1 {
		return h.fail(c, errs.ErrInvalidQuantity)
	}

	catID := c.Param("categoryId")
	available, err := h.svc.Restock(c.Request().Context(), service.RestockInput{
		CategoryID: catID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusOK, restockResponse{
		CategoryID:     catID,
		SeatsAvailable: available,
	})
}

func (h *Handler) Reconcile(c echo.Context) error {
	snap, err := h.svc.ReconcileCategory(c.Request().Context(), c.Param("categoryId"))
	if err != nil {
		return h.fail(c, err)
	}

	return response.OK(c, http.StatusOK, snap)
}
