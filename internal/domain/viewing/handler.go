package viewing

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lettings/viewings/internal/platform/auth"
	"github.com/lettings/viewings/pkg/pagination"
)

const (
	roleTenant = "tenant"
	roleLessor = "lessor"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Shared endpoints – tenant, lessor
	shared := api.Group("", auth.RequireRole(roleTenant, roleLessor))
	shared.GET("/viewing-rules", h.GetRules)
	shared.GET("/properties/:id/viewing-slots", h.ListSlots)
	shared.POST("/viewing-slots/validate", h.ValidateSlot)
	shared.GET("/appointments", h.ListAppointments)
	shared.GET("/appointments/:id", h.GetAppointment)
	shared.POST("/appointments/:id/cancel", h.CancelAppointment)

	// Tenant endpoints
	tenant := api.Group("", auth.RequireRole(roleTenant))
	tenant.POST("/appointments", h.RequestViewing)
	tenant.POST("/appointments/:id/reschedule", h.RescheduleAppointment)

	// Lessor endpoints
	lessor := api.Group("", auth.RequireRole(roleLessor))
	lessor.POST("/appointments/:id/confirm", h.ConfirmAppointment)
	lessor.POST("/appointments/:id/decline", h.DeclineAppointment)
}

// -- Rules and slots --

func (h *Handler) GetRules(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Scheduler().Hints())
}

type slotsResponse struct {
	PropertyID uuid.UUID        `json:"property_id"`
	Date       string           `json:"date"`
	Slots      []string         `json:"slots"`
	Validation ValidationResult `json:"validation"`
}

func (h *Handler) ListSlots(c echo.Context) error {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}
	date := c.QueryParam("date")
	resp := slotsResponse{
		PropertyID: propertyID,
		Date:       date,
		Slots:      []string{},
		Validation: h.svc.Scheduler().ValidateDate(date),
	}
	if resp.Validation.Valid {
		slots, err := h.svc.AvailableSlots(c.Request().Context(), propertyID, date)
		if err != nil {
			return h.internalError(c, err, "failed to load available slots")
		}
		resp.Slots = slots
	}
	return c.JSON(http.StatusOK, resp)
}

type validateSlotRequest struct {
	PropertyID    uuid.UUID `json:"property_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
}

type validateSlotResponse struct {
	ValidationResult
	Conflict bool `json:"conflict"`
}

// ValidateSlot always answers 200 with the outcome; only storage failures are
// errors.
func (h *Handler) ValidateSlot(c echo.Context) error {
	var req validateSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PropertyID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "property_id is required")
	}
	res, err := h.svc.CheckAvailability(c.Request().Context(), req.PropertyID, req.AppointmentID, req.Date, req.Time)
	if errors.Is(err, ErrSlotConflict) {
		return c.JSON(http.StatusOK, validateSlotResponse{ValidationResult: res, Conflict: true})
	}
	if err != nil {
		return h.internalError(c, err, "failed to check slot availability")
	}
	return c.JSON(http.StatusOK, validateSlotResponse{ValidationResult: res})
}

// -- Appointments --

func (h *Handler) RequestViewing(c echo.Context) error {
	var req NewViewingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.TenantID = auth.UserIDFromContext(c.Request().Context())
	res, err := h.svc.RequestViewing(c.Request().Context(), req)
	if err != nil {
		return h.mutationError(c, res, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	view := c.QueryParam("as")
	if view == "" {
		view = roleTenant
		if auth.HasRole(ctx, roleLessor) && !auth.HasRole(ctx, roleTenant) {
			view = roleLessor
		}
	}
	if view != roleTenant && view != roleLessor {
		return echo.NewHTTPError(http.StatusBadRequest, "as must be tenant or lessor")
	}
	if !auth.HasRole(ctx, view) {
		return echo.NewHTTPError(http.StatusForbidden, "required role: "+view)
	}

	userID := auth.UserIDFromContext(ctx)
	var (
		items []*Appointment
		total int
		err   error
	)
	if view == roleLessor {
		items, total, err = h.svc.ListForLessor(ctx, userID, pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.ListForTenant(ctx, userID, pg.Limit, pg.Offset)
	}
	if err != nil {
		return h.internalError(c, err, "failed to list appointments")
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, _, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// RescheduleAppointment validates the new slot, checks it against confirmed
// bookings and only then moves the appointment.
func (h *Handler) RescheduleAppointment(c echo.Context) error {
	a, actor, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	if actor != ActorTenant {
		return echo.NewHTTPError(http.StatusForbidden, "only the requesting tenant can reschedule")
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	res, err := h.svc.CheckAvailability(ctx, a.PropertyID, a.ID, req.Date, req.Time)
	if errors.Is(err, ErrSlotConflict) {
		return c.JSON(http.StatusConflict, MutationResult{Message: res.Error})
	}
	if err != nil {
		return h.internalError(c, err, "failed to check slot availability")
	}
	if !res.Valid {
		return c.JSON(http.StatusUnprocessableEntity, res)
	}

	out, err := h.svc.RescheduleAppointment(ctx, a.ID, req)
	if err != nil {
		return h.mutationError(c, out, err)
	}
	return c.JSON(http.StatusOK, out)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	a, actor, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := h.svc.CancelAppointment(c.Request().Context(), a.ID, actor, req.Note)
	if err != nil {
		return h.mutationError(c, out, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ConfirmAppointment(c echo.Context) error {
	return h.lessorAction(c, h.svc.ConfirmAppointment)
}

func (h *Handler) DeclineAppointment(c echo.Context) error {
	return h.lessorAction(c, h.svc.DeclineAppointment)
}

func (h *Handler) lessorAction(c echo.Context, fn func(ctx context.Context, id uuid.UUID, note string) (MutationResult, error)) error {
	a, actor, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	if actor != ActorLessor {
		return echo.NewHTTPError(http.StatusForbidden, "only the property's lessor can do this")
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := fn(c.Request().Context(), a.ID, req.Note)
	if err != nil {
		return h.mutationError(c, out, err)
	}
	return c.JSON(http.StatusOK, out)
}

// loadOwned fetches the :id appointment and resolves the caller's side of
// it. Admins act as the lessor.
func (h *Handler) loadOwned(c echo.Context) (*Appointment, Actor, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	ctx := c.Request().Context()
	a, err := h.svc.GetAppointment(ctx, id)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, "", echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	if err != nil {
		return nil, "", h.internalError(c, err, "failed to load appointment")
	}

	userID := auth.UserIDFromContext(ctx)
	switch {
	case userID == a.TenantID && auth.HasRole(ctx, roleTenant):
		return a, ActorTenant, nil
	case userID == a.LessorID && auth.HasRole(ctx, roleLessor):
		return a, ActorLessor, nil
	case auth.HasRole(ctx, "admin"):
		return a, ActorLessor, nil
	}
	return nil, "", echo.NewHTTPError(http.StatusForbidden, "not a party to this appointment")
}

func (h *Handler) mutationError(c echo.Context, res MutationResult, err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return c.JSON(http.StatusUnprocessableEntity, invalid(ValidationMessage(err)))
	case errors.Is(err, ErrAppointmentNotFound), errors.Is(err, ErrPropertyNotFound):
		return c.JSON(http.StatusNotFound, res)
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrAppointmentCancelled),
		errors.Is(err, ErrInvalidTransition):
		return c.JSON(http.StatusConflict, res)
	}
	h.logger.Error().Err(err).
		Str("request_id", requestID(c)).
		Str("path", c.Path()).
		Msg("appointment mutation failed")
	return c.JSON(http.StatusInternalServerError, MutationResult{Message: res.Message})
}

func (h *Handler) internalError(c echo.Context, err error, msg string) error {
	h.logger.Error().Err(err).
		Str("request_id", requestID(c)).
		Str("path", c.Path()).
		Msg(msg)
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

func requestID(c echo.Context) string {
	id, _ := c.Get("request_id").(string)
	return id
}
