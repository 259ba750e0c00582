package service

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/catalog"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// RecommendCriteria extends the catalog filter with an optional slot.  The
// slot filter applies only when Date, Time and PartySize are all set.
type RecommendCriteria struct {
	catalog.Filter
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	PartySize int    `json:"party_size,omitempty"`
}

func (c RecommendCriteria) hasSlot() bool {
	return c.Date != "" && c.Time != "" && c.PartySize > 0
}

// Recommendation is a catalog row, annotated with the free seats when the
// criteria named a slot.
type Recommendation struct {
	model.Restaurant
	AvailableSeats *int `json:"available_seats,omitempty"`
}

// Recommend filters the catalog by c and returns the matches by rating,
// highest first.  Ties keep catalog order.  A party size with no explicit
// minimum capacity also filters out restaurants too small to seat it.
func (s *ReservationService) Recommend(ctx context.Context, c RecommendCriteria) []Recommendation {
	_, span := s.tracer.Start(ctx, "reservation.recommend")
	defer span.End()

	f := c.Filter
	if f.MinCapacity == 0 && c.PartySize > 0 {
		f.MinCapacity = c.PartySize
	}

	out := make([]Recommendation, 0)
	for _, r := range s.catalog.Search(f) {
		rec := Recommendation{Restaurant: r}
		if c.hasSlot() {
			res := s.engine.Check(availability.Query{RestaurantID: r.ID, Date: c.Date, Time: c.Time, PartySize: c.PartySize})
			if !res.Available {
				continue
			}
			seats := res.AvailableSeats
			rec.AvailableSeats = &seats
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })

	span.SetAttributes(attribute.Int("results", len(out)))
	return out
}
