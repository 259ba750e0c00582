package service

import (
	"errors"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// ErrReservationNotFound is returned by Get, Modify and Cancel for unknown IDs.
var ErrReservationNotFound = repository.ErrReservationNotFound

// ErrInvalidInput reports a request the service refuses before consulting
// availability, such as a missing customer name.
var ErrInvalidInput = errors.New("invalid input")

// ErrIDExhausted is returned when every ID suffix for the current second is
// already taken.
var ErrIDExhausted = errors.New("no reservation id available")

// UnavailableError is returned when the availability engine refuses a
// create or modify.  Its message is the engine's reason verbatim.
type UnavailableError struct {
	Result availability.Result
}

func (e *UnavailableError) Error() string { return e.Result.Reason }

// AsUnavailable unwraps err into an *UnavailableError.
func AsUnavailable(err error) (*UnavailableError, bool) {
	var ue *UnavailableError
	ok := errors.As(err, &ue)
	return ue, ok
}

func isNotFound(err error) bool { return errors.Is(err, ErrReservationNotFound) }

func isInvalid(err error) bool { return errors.Is(err, ErrInvalidInput) }
