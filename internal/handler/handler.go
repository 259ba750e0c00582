// Package handler exposes the reservation system over HTTP.  Handlers are
// thin: they bind and validate the request, call the reservation service
// and map its errors to status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/agent"
	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/catalog"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
	"github.com/iliyamo/restaurant-reservation/internal/tools"
)

// Service is the part of *service.ReservationService the HTTP API uses.
type Service interface {
	tools.Service
	Restaurant(id int) (model.Restaurant, error)
}

// ToolRunner executes adapter tools.  *tools.Dispatcher satisfies it.
type ToolRunner interface {
	Execute(ctx context.Context, name, args string) any
}

// Chatter is the conversational agent.  *agent.Agent satisfies it.
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) agent.Turn
	Reset(sessionID string)
}

// Validator adapts validator/v10 to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a validator that reports failures with the JSON
// field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// bindValid binds the body into dst and runs the echo validator on it.
// The returned error is already a 400 response.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "min":
		return fe.Field() + " must not be empty"
	default:
		return fe.Field() + " is invalid"
	}
}

// respondError maps a service error to a status code and an error body.
func respondError(c echo.Context, err error) error {
	if ue, ok := service.AsUnavailable(err); ok {
		return c.JSON(statusForCode(ue.Result.Code), echo.Map{"error": ue.Result.Reason, "code": ue.Result.Code})
	}
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, catalog.ErrRestaurantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
	case errors.Is(err, repository.ErrPersist):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation could not be saved"})
	default:
		c.Logger().Errorf("unhandled service error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func statusForCode(code availability.Code) int {
	switch code {
	case availability.CodeInvalidInput:
		return http.StatusBadRequest
	case availability.CodeUnknownVenue:
		return http.StatusNotFound
	case availability.CodeClosed, availability.CodeNotEnoughSeats:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
