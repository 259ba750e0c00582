package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/catalog"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// RestaurantHandler serves the read-only catalog and slot availability.
type RestaurantHandler struct {
	Svc Service
}

// NewRestaurantHandler panics on a nil service; it is wired once at startup.
func NewRestaurantHandler(svc Service) *RestaurantHandler {
	if svc == nil {
		panic("nil service passed to NewRestaurantHandler")
	}
	return &RestaurantHandler{Svc: svc}
}

func bindFilter(c echo.Context, f *catalog.Filter) error {
	return echo.QueryParamsBinder(c).
		String("location", &f.Location).
		String("cuisine", &f.Cuisine).
		String("price_range", &f.PriceRange).
		Float64("min_rating", &f.MinRating).
		Int("min_capacity", &f.MinCapacity).
		BindError()
}

// Search handles GET /v1/restaurants.  Query parameters location, cuisine,
// price_range, min_rating and min_capacity narrow the result; with none the
// whole catalog is returned in catalog order.
func (h *RestaurantHandler) Search(c echo.Context) error {
	var f catalog.Filter
	if err := bindFilter(c, &f); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	return c.JSON(http.StatusOK, echo.Map{"results": h.Svc.Search(f)})
}

// restaurantView is the detail representation: the catalog row plus its
// special features split into tags.
type restaurantView struct {
	model.Restaurant
	Features []string `json:"features"`
}

// Get handles GET /v1/restaurants/:id.
func (h *RestaurantHandler) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	r, err := h.Svc.Restaurant(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, restaurantView{Restaurant: r, Features: r.Features()})
}

// Recommend handles GET /v1/restaurants/recommendations.  Besides the
// search parameters it accepts date, time and party_size; when all three
// are present only restaurants with room for the party are returned.
func (h *RestaurantHandler) Recommend(c echo.Context) error {
	var crit service.RecommendCriteria
	if err := bindFilter(c, &crit.Filter); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	err := echo.QueryParamsBinder(c).
		String("date", &crit.Date).
		String("time", &crit.Time).
		Int("party_size", &crit.PartySize).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	return c.JSON(http.StatusOK, echo.Map{"recommendations": h.Svc.Recommend(c.Request().Context(), crit)})
}

// Availability handles GET /v1/restaurants/:id/availability?date=&time=&party_size=.
// A closed slot or a full slot is a normal answer (200, available=false);
// malformed input is 400 and an unknown restaurant 404.
func (h *RestaurantHandler) Availability(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	q := availability.Query{RestaurantID: id}
	err = echo.QueryParamsBinder(c).
		MustString("date", &q.Date).
		MustString("time", &q.Time).
		MustInt("party_size", &q.PartySize).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date, time and party_size are required"})
	}

	res := h.Svc.CheckAvailability(c.Request().Context(), q)
	switch res.Code {
	case availability.CodeInvalidInput, availability.CodeUnknownVenue:
		return c.JSON(statusForCode(res.Code), echo.Map{"error": res.Reason, "code": res.Code})
	}
	return c.JSON(http.StatusOK, res)
}
