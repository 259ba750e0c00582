package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// ReservationHandler books, looks up, modifies and cancels reservations.
// Identity is by email only; there is no login.
type ReservationHandler struct {
	Svc Service
}

// NewReservationHandler panics on a nil service.
func NewReservationHandler(svc Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationRequest struct {
	CustomerName    string `json:"customer_name" validate:"required"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	RestaurantID    int    `json:"restaurant_id" validate:"required,gt=0"`
	Date            string `json:"date" validate:"required"`
	Time            string `json:"time" validate:"required"`
	PartySize       int    `json:"party_size" validate:"required,gt=0"`
	SpecialRequests string `json:"special_requests"`
}

// Every field is optional; absent fields keep their stored value.
type modifyReservationRequest struct {
	CustomerName    *string `json:"customer_name" validate:"omitempty,min=1"`
	CustomerEmail   *string `json:"customer_email" validate:"omitempty,email"`
	RestaurantID    *int    `json:"restaurant_id" validate:"omitempty,gt=0"`
	Date            *string `json:"date" validate:"omitempty,min=1"`
	Time            *string `json:"time" validate:"omitempty,min=1"`
	PartySize       *int    `json:"party_size" validate:"omitempty,gt=0"`
	SpecialRequests *string `json:"special_requests"`
}

// Create handles POST /v1/reservations.  It returns 201 with the stored
// reservation and a confirmation message, 409 when the slot is closed or
// full, and 400 on malformed input.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body createReservationRequest
	if err := bindValid(c, &body); err != nil {
		return err
	}
	conf, err := h.Svc.Create(c.Request().Context(), service.CreateRequest{
		CustomerName:    body.CustomerName,
		CustomerEmail:   body.CustomerEmail,
		RestaurantID:    body.RestaurantID,
		Date:            body.Date,
		Time:            body.Time,
		PartySize:       body.PartySize,
		SpecialRequests: body.SpecialRequests,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, conf)
}

// ListByEmail handles GET /v1/reservations?email=.  The email is required;
// listing every reservation is not offered.
func (h *ReservationHandler) ListByEmail(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": h.Svc.ListByEmail(email)})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	r, err := h.Svc.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Modify handles PATCH /v1/reservations/:id.
func (h *ReservationHandler) Modify(c echo.Context) error {
	var body modifyReservationRequest
	if err := bindValid(c, &body); err != nil {
		return err
	}
	conf, err := h.Svc.Modify(c.Request().Context(), c.Param("id"), service.Update{
		CustomerName:    body.CustomerName,
		CustomerEmail:   body.CustomerEmail,
		RestaurantID:    body.RestaurantID,
		Date:            body.Date,
		Time:            body.Time,
		PartySize:       body.PartySize,
		SpecialRequests: body.SpecialRequests,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, conf)
}

// Cancel handles DELETE /v1/reservations/:id.  The cancelled reservation is
// returned in the body; its ID can never be reused.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	conf, err := h.Svc.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, conf)
}
