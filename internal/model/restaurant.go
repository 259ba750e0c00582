package model

import (
	"fmt"
	"strings"
	"time"
)

// PriceRange is the ordered price tier of a restaurant.  Tiers compare by
// Rank, from PriceBudget (cheapest) to PriceFine (most expensive).
type PriceRange string

const (
	PriceBudget   PriceRange = "$"
	PriceModerate PriceRange = "$$"
	PriceUpscale  PriceRange = "$$$"
	PriceFine     PriceRange = "$$$$"
)

var priceTiers = []PriceRange{PriceBudget, PriceModerate, PriceUpscale, PriceFine}

// ParsePriceRange converts a catalog value into a PriceRange.  Surrounding
// whitespace is ignored; anything outside the fixed tier set is rejected.
func ParsePriceRange(s string) (PriceRange, error) {
	v := PriceRange(strings.TrimSpace(s))
	for _, p := range priceTiers {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown price range %q", s)
}

// Rank returns the position of the tier (1 for PriceBudget) or 0 when the
// value is not a known tier.
func (p PriceRange) Rank() int {
	for i, t := range priceTiers {
		if t == p {
			return i + 1
		}
	}
	return 0
}

// Restaurant is one row of the read-only catalog.  The catalog is loaded
// once at startup (CSV file or the MySQL restaurants table) and never
// mutated afterwards.
//
// Fields:
//
//	ID              – unique catalog identifier.
//	Name            – display name, copied into reservations at booking time.
//	Cuisine         – free text such as "Italian" or "Japanese Fusion".
//	Location        – neighbourhood or city.
//	PriceRange      – ordered price tier.
//	Capacity        – seats available per slot; always positive.
//	Rating          – average rating between 1 and 5.
//	OpeningTime     – "HH:MM" opening time of day.
//	ClosingTime     – "HH:MM" closing time, same calendar day, not before OpeningTime.
//	SpecialFeatures – free text tag list ("Outdoor seating, Live music").
type Restaurant struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Cuisine         string     `json:"cuisine"`
	Location        string     `json:"location"`
	PriceRange      PriceRange `json:"price_range"`
	Capacity        int        `json:"capacity"`
	Rating          float64    `json:"rating"`
	OpeningTime     string     `json:"opening_time"`
	ClosingTime     string     `json:"closing_time"`
	SpecialFeatures string     `json:"special_features"`
}

// Features splits SpecialFeatures into trimmed, non-empty tags.  Both commas
// and semicolons are accepted as separators.
func (r Restaurant) Features() []string {
	fields := strings.FieldsFunc(r.SpecialFeatures, func(c rune) bool { return c == ',' || c == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// IsOpenAt reports whether the clock time falls inside the restaurant's
// opening hours.  Both bounds are inclusive.  Unparseable hours are treated
// as closed.
func (r Restaurant) IsOpenAt(clock time.Time) bool {
	open, err := ParseClock(r.OpeningTime)
	if err != nil {
		return false
	}
	closing, err := ParseClock(r.ClosingTime)
	if err != nil {
		return false
	}
	return !clock.Before(open) && !clock.After(closing)
}

// Validate checks the catalog invariants of a single row.
func (r Restaurant) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("id must be positive, got %d", r.ID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("restaurant %d: name is required", r.ID)
	}
	if r.Capacity <= 0 {
		return fmt.Errorf("restaurant %d: capacity must be positive, got %d", r.ID, r.Capacity)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("restaurant %d: rating must be between 1 and 5, got %v", r.ID, r.Rating)
	}
	if r.PriceRange.Rank() == 0 {
		return fmt.Errorf("restaurant %d: unknown price range %q", r.ID, r.PriceRange)
	}
	open, err := ParseClock(r.OpeningTime)
	if err != nil {
		return fmt.Errorf("restaurant %d: opening_time: %w", r.ID, err)
	}
	closing, err := ParseClock(r.ClosingTime)
	if err != nil {
		return fmt.Errorf("restaurant %d: closing_time: %w", r.ID, err)
	}
	if closing.Before(open) {
		return fmt.Errorf("restaurant %d: closing_time %s is before opening_time %s", r.ID, r.ClosingTime, r.OpeningTime)
	}
	return nil
}
