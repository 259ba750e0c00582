// Package availability answers "can a party of N be seated at restaurant R
// on date D at time T?" as a pure function of the catalog and the current
// reservations.  Malformed input is a normal "no" carrying a reason, never
// an error, because callers relay the reason to people as conversation.
package availability

import (
	"fmt"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// Reasons returned in Result.Reason.  Capacity failures are formatted with
// the exact number of seats left.
const (
	ReasonPartySize          = "Party size must be a positive number"
	ReasonRestaurantNotFound = "Restaurant not found"
	ReasonClosed             = "Restaurant is not open at this time"
	reasonInvalidFormat      = "Invalid input format: %v"
	reasonNotEnoughSeats     = "Not enough seats available. Only %d seats left."
)

// Code classifies a Result so callers can map it to transport status codes
// without parsing the reason text.
type Code string

const (
	CodeAvailable      Code = "available"
	CodeInvalidInput   Code = "invalid_input"
	CodeUnknownVenue   Code = "restaurant_not_found"
	CodeClosed         Code = "closed"
	CodeNotEnoughSeats Code = "not_enough_seats"
)

// RestaurantLookup resolves catalog rows.  *catalog.Catalog satisfies it.
type RestaurantLookup interface {
	ByID(id int) (model.Restaurant, bool)
}

// ReservationLister exposes the current reservations.
// *repository.ReservationStore satisfies it.
type ReservationLister interface {
	FindAll() []model.Reservation
}

// Query identifies a slot and a party size.
type Query struct {
	RestaurantID int    `json:"restaurant_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PartySize    int    `json:"party_size"`
}

// Result is the outcome of a check.  Restaurant and AvailableSeats are set
// only when Available is true; Reason only when it is false.
type Result struct {
	Available      bool              `json:"available"`
	Restaurant     *model.Restaurant `json:"restaurant,omitempty"`
	AvailableSeats int               `json:"available_seats,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Code           Code              `json:"-"`
}

func unavailable(code Code, reason string) Result {
	return Result{Available: false, Reason: reason, Code: code}
}

// Engine evaluates queries against a catalog and a reservation source.  It
// holds no state of its own, so two checks with no mutation in between
// return identical results.
type Engine struct {
	restaurants  RestaurantLookup
	reservations ReservationLister
}

// NewEngine wires an Engine to its two read-only sources.
func NewEngine(restaurants RestaurantLookup, reservations ReservationLister) *Engine {
	return &Engine{restaurants: restaurants, reservations: reservations}
}

// Check evaluates q against every current reservation.
func (e *Engine) Check(q Query) Result {
	return e.CheckExcluding(q, "")
}

// CheckExcluding evaluates q while leaving the reservation with ID
// excludeID out of the booked-seat sum.  Modifying a reservation in place
// uses this so the reservation does not compete with itself.
func (e *Engine) CheckExcluding(q Query, excludeID string) Result {
	if _, err := model.ParseDate(q.Date); err != nil {
		return unavailable(CodeInvalidInput, fmt.Sprintf(reasonInvalidFormat, err))
	}
	clock, err := model.ParseClock(q.Time)
	if err != nil {
		return unavailable(CodeInvalidInput, fmt.Sprintf(reasonInvalidFormat, err))
	}
	if q.PartySize <= 0 {
		return unavailable(CodeInvalidInput, ReasonPartySize)
	}
	restaurant, ok := e.restaurants.ByID(q.RestaurantID)
	if !ok {
		return unavailable(CodeUnknownVenue, ReasonRestaurantNotFound)
	}
	if !restaurant.IsOpenAt(clock) {
		return unavailable(CodeClosed, ReasonClosed)
	}

	seats := restaurant.Capacity - e.Booked(q.RestaurantID, q.Date, q.Time, excludeID)
	if seats >= q.PartySize {
		return Result{
			Available:      true,
			Restaurant:     &restaurant,
			AvailableSeats: seats,
			Code:           CodeAvailable,
		}
	}
	if seats < 0 {
		seats = 0
	}
	return unavailable(CodeNotEnoughSeats, fmt.Sprintf(reasonNotEnoughSeats, seats))
}

// Booked sums the party sizes of reservations in the slot, skipping
// excludeID when it is non-empty.  Slots match on exact date and time (in
// canonical form); there is no time-window overlap.
func (e *Engine) Booked(restaurantID int, date, clock, excludeID string) int {
	booked := 0
	for _, r := range e.reservations.FindAll() {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if r.InSlot(restaurantID, date, clock) {
			booked += r.PartySize
		}
	}
	return booked
}
