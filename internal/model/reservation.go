package model

import (
	"fmt"
	"strings"
	"time"
)

// Layouts used by the durable reservation file and the tool surface.
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
	CreatedAtLayout = "2006-01-02 15:04:05"
)

// Reservation records a party booked into a restaurant slot.  Records are
// created, modified and cancelled only through the reservation service; the
// store is the sole writer of the durable JSON file.
//
// Fields:
//
//	ID              – "RES-<YYYYMMDDHHMMSS>-<NNN>", immutable once assigned.
//	CustomerName    – name given at booking time.
//	CustomerEmail   – contact address, used for lookups.
//	RestaurantID    – catalog ID of the booked restaurant.
//	RestaurantName  – name snapshot taken at booking time, for display.
//	Date            – calendar date, "YYYY-MM-DD".
//	Time            – 24-hour clock time, "HH:MM".
//	PartySize       – number of seats taken; at least 1.
//	SpecialRequests – optional free text.
//	CreatedAt       – local creation time, "YYYY-MM-DD HH:MM:SS".
type Reservation struct {
	ID              string `json:"id"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	RestaurantID    int    `json:"restaurant_id"`
	RestaurantName  string `json:"restaurant_name"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       int    `json:"party_size"`
	SpecialRequests string `json:"special_requests"`
	CreatedAt       string `json:"created_at"`
}

// InSlot reports whether the reservation occupies the given slot.  Date and
// time are compared in canonical form so that "9:00" and "09:00" are the
// same slot; values that do not parse fall back to exact string equality.
func (r Reservation) InSlot(restaurantID int, date, clock string) bool {
	if r.RestaurantID != restaurantID {
		return false
	}
	return canonicalOr(CanonicalDate, r.Date) == canonicalOr(CanonicalDate, date) &&
		canonicalOr(CanonicalTime, r.Time) == canonicalOr(CanonicalTime, clock)
}

func canonicalOr(f func(string) (string, error), s string) string {
	if c, err := f(s); err == nil {
		return c
	}
	return s
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q does not match YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseClock parses a 24-hour "HH:MM" time of day.  The returned value sits
// on the zero date so clock values compare directly.
func ParseClock(s string) (time.Time, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q does not match HH:MM", s)
	}
	return t, nil
}

// CanonicalDate returns the date reformatted as "YYYY-MM-DD".
func CanonicalDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// CanonicalTime returns the clock time reformatted as zero-padded "HH:MM".
func CanonicalTime(s string) (string, error) {
	t, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return t.Format(ClockLayout), nil
}
