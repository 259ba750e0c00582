// Package catalog holds the read-only restaurant table.  It is loaded once
// at startup, from a CSV file or from the MySQL restaurants table, and then
// shared by every consumer without locking since nothing mutates it.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ErrRestaurantNotFound is returned by Get when no row has the requested ID.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrInvalidRow wraps every row-level validation failure during loading.
var ErrInvalidRow = errors.New("invalid catalog row")

// Catalog is an immutable, ordered set of restaurants indexed by ID.
type Catalog struct {
	rows  []model.Restaurant
	index map[int]int
}

// New validates the rows and builds a Catalog.  Row order is preserved and
// becomes the tie-break order for rating sorts.
func New(rows []model.Restaurant) (*Catalog, error) {
	c := &Catalog{
		rows:  make([]model.Restaurant, 0, len(rows)),
		index: make(map[int]int, len(rows)),
	}
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidRow, i+1, err)
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: row %d: duplicate id %d", ErrInvalidRow, i+1, r.ID)
		}
		c.index[r.ID] = len(c.rows)
		c.rows = append(c.rows, r)
	}
	return c, nil
}

// Len returns the number of restaurants.
func (c *Catalog) Len() int { return len(c.rows) }

// ByID looks up a restaurant.
func (c *Catalog) ByID(id int) (model.Restaurant, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Restaurant{}, false
	}
	return c.rows[i], true
}

// Get is ByID with an error for callers that propagate failures.
func (c *Catalog) Get(id int) (model.Restaurant, error) {
	r, ok := c.ByID(id)
	if !ok {
		return model.Restaurant{}, fmt.Errorf("%w: id %d", ErrRestaurantNotFound, id)
	}
	return r, nil
}

// Filter enumerates the recognised search criteria.  A zero value for any
// field disables that criterion.
//
//	Location, Cuisine – case-insensitive substring match.
//	PriceRange        – case-insensitive exact tier match.
//	MinRating         – rating >= MinRating.
//	MinCapacity       – capacity >= MinCapacity.
type Filter struct {
	Location    string
	Cuisine     string
	MinRating   float64
	PriceRange  string
	MinCapacity int
}

// Match reports whether a single restaurant satisfies the filter.
func (f Filter) Match(r model.Restaurant) bool {
	if loc := strings.TrimSpace(f.Location); loc != "" && !containsFold(r.Location, loc) {
		return false
	}
	if cui := strings.TrimSpace(f.Cuisine); cui != "" && !containsFold(r.Cuisine, cui) {
		return false
	}
	if f.MinRating > 0 && r.Rating < f.MinRating {
		return false
	}
	if pr := strings.TrimSpace(f.PriceRange); pr != "" && !strings.EqualFold(string(r.PriceRange), pr) {
		return false
	}
	if f.MinCapacity > 0 && r.Capacity < f.MinCapacity {
		return false
	}
	return true
}

// Search returns the restaurants matching f in catalog order.
func (c *Catalog) Search(f Filter) []model.Restaurant {
	out := make([]model.Restaurant, 0)
	for _, r := range c.rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
