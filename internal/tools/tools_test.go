package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/catalog"
	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

func newDispatcher(t *testing.T) (*Dispatcher, *metrics.Metrics) {
	t.Helper()
	d, m, _ := newDispatcherIn(t, t.TempDir())
	return d, m
}

// newDispatcherIn keeps the reservations file in dir and also returns the store.
func newDispatcherIn(t *testing.T, dir string) (*Dispatcher, *metrics.Metrics, *repository.ReservationStore) {
	t.Helper()
	cat, err := catalog.New([]model.Restaurant{
		{ID: 1, Name: "Bella Notte", Cuisine: "Italian", Location: "Downtown", PriceRange: model.PriceModerate, Capacity: 10, Rating: 4.5, OpeningTime: "11:00", ClosingTime: "22:00"},
		{ID: 2, Name: "Sakura House", Cuisine: "Japanese", Location: "Uptown", PriceRange: model.PriceUpscale, Capacity: 6, Rating: 4.8, OpeningTime: "17:00", ClosingTime: "23:00"},
	})
	require.NoError(t, err)
	store, err := repository.OpenReservationStore(filepath.Join(dir, "reservations.json"))
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	svc := service.New(cat, store, service.WithClock(func() time.Time {
		return time.Date(2025, 5, 20, 10, 11, 12, 0, time.Local)
	}))
	return NewDispatcher(svc, m, nil), m, store
}

// roundTrip decodes a tool result the way the model sees it.
func roundTrip(t *testing.T, d *Dispatcher, name, args string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(d.ExecuteJSON(context.Background(), name, args)), &out))
	return out
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 8)
	assert.Equal(t, []string{
		SearchRestaurants, RecommendRestaurants, CheckAvailability, CreateReservation,
		GetReservation, GetReservationsByEmail, ModifyReservation, CancelReservation,
	}, Names())

	byName := map[string]jsonschema.Definition{}
	for _, d := range defs {
		params, ok := d.Function.Parameters.(jsonschema.Definition)
		require.True(t, ok)
		byName[d.Function.Name] = params
	}
	assert.Empty(t, byName[SearchRestaurants].Required)
	assert.Equal(t, []string{"restaurant_id", "date", "time", "party_size"}, byName[CheckAvailability].Required)
	assert.Equal(t, []string{"customer_name", "customer_email", "restaurant_id", "date", "time", "party_size"}, byName[CreateReservation].Required)
	assert.Equal(t, []string{"reservation_id"}, byName[ModifyReservation].Required)
	assert.Equal(t, jsonschema.Integer, byName[ModifyReservation].Properties["party_size"].Type)
	assert.Equal(t, jsonschema.Number, byName[SearchRestaurants].Properties["min_rating"].Type)

	raw, err := json.Marshal(defs)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"cancel_reservation"`)
}

func TestExecute_UnknownTool(t *testing.T) {
	d, m := newDispatcher(t)
	out := roundTrip(t, d, "book_flight", `{}`)
	assert.Equal(t, "Unknown function: book_flight", out["error"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("book_flight", metrics.OutcomeInvalid)))
}

func TestExecute_Search(t *testing.T) {
	d, _ := newDispatcher(t)

	out := roundTrip(t, d, SearchRestaurants, `{"cuisine":"japanese"}`)
	results := out["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Sakura House", results[0].(map[string]any)["name"])

	out = roundTrip(t, d, SearchRestaurants, ``)
	assert.Len(t, out["results"], 2)

	out = roundTrip(t, d, SearchRestaurants, `{"min_rating":"4.6"}`)
	assert.Len(t, out["results"], 1)

	out = roundTrip(t, d, SearchRestaurants, `{"location":"Nowhere"}`)
	assert.Equal(t, []any{}, out["results"])
}

func TestExecute_RejectsUnknownAndMalformedArgs(t *testing.T) {
	d, _ := newDispatcher(t)

	cases := map[string]struct{ tool, args, want string }{
		"unknown key":     {SearchRestaurants, `{"vibe":"cozy"}`, `unknown field "vibe"`},
		"not an object":   {SearchRestaurants, `[1,2]`, "Invalid arguments"},
		"bad json":        {CheckAvailability, `{"restaurant_id":`, "Invalid arguments"},
		"trailing data":   {SearchRestaurants, `{} {}`, "unexpected data"},
		"missing":         {CheckAvailability, `{"restaurant_id":1}`, "date, time, party_size"},
		"non-integer":     {CheckAvailability, `{"restaurant_id":"one","date":"2025-06-01","time":"19:00","party_size":2}`, "not an integer"},
		"fractional":      {CheckAvailability, `{"restaurant_id":1,"date":"2025-06-01","time":"19:00","party_size":2.5}`, "not an integer"},
		"create missing":  {CreateReservation, `{"customer_name":"Ada"}`, "customer_email"},
		"modify no id":    {ModifyReservation, `{"party_size":2}`, "reservation_id"},
		"email missing":   {GetReservationsByEmail, `{}`, "customer_email"},
		"cancel blank id": {CancelReservation, `{"reservation_id":"  "}`, "reservation_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out := roundTrip(t, d, tc.tool, tc.args)
			msg, ok := out["error"].(string)
			require.True(t, ok, "expected error result, got %v", out)
			assert.Contains(t, msg, tc.want)
		})
	}
}

func TestExecute_CheckAvailability(t *testing.T) {
	d, _ := newDispatcher(t)

	out := roundTrip(t, d, CheckAvailability, `{"restaurant_id":"1","date":"2025-06-01","time":"19:00","party_size":"4"}`)
	assert.Equal(t, true, out["available"])
	assert.EqualValues(t, 10, out["available_seats"])
	assert.Equal(t, "Bella Notte", out["restaurant"].(map[string]any)["name"])

	out = roundTrip(t, d, CheckAvailability, `{"restaurant_id":1,"date":"2025-06-01","time":"05:00","party_size":2}`)
	assert.Equal(t, false, out["available"])
	assert.Equal(t, "Restaurant is not open at this time", out["reason"])
	assert.NotContains(t, out, "restaurant")
}

func TestExecute_ReservationLifecycle(t *testing.T) {
	d, m := newDispatcher(t)

	out := roundTrip(t, d, CreateReservation, `{
		"customer_name":"Ada Lovelace","customer_email":"ada@example.com",
		"restaurant_id":1,"date":"2025-06-01","time":"19:00","party_size":6,
		"special_requests":"window seat"}`)
	require.Equal(t, true, out["success"], out)
	assert.Equal(t, "Reservation confirmed at Bella Notte for 6 people on 2025-06-01 at 19:00", out["message"])
	id := out["reservation"].(map[string]any)["id"].(string)

	out = roundTrip(t, d, CreateReservation, `{
		"customer_name":"Grace","customer_email":"grace@example.com",
		"restaurant_id":1,"date":"2025-06-01","time":"19:00","party_size":5}`)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Not enough seats available. Only 4 seats left.", out["message"])
	assert.NotContains(t, out, "reservation")

	out = roundTrip(t, d, GetReservation, `{"reservation_id":"`+id+`"}`)
	assert.Equal(t, "window seat", out["reservation"].(map[string]any)["special_requests"])

	out = roundTrip(t, d, GetReservation, `{"reservation_id":"RES-nope"}`)
	assert.Contains(t, out, "reservation")
	assert.Nil(t, out["reservation"])

	out = roundTrip(t, d, GetReservationsByEmail, `{"customer_email":"ADA@example.com"}`)
	assert.Len(t, out["reservations"], 1)
	out = roundTrip(t, d, GetReservationsByEmail, `{"customer_email":"grace@example.com"}`)
	assert.Equal(t, []any{}, out["reservations"])

	out = roundTrip(t, d, ModifyReservation, `{"reservation_id":"`+id+`","party_size":8}`)
	require.Equal(t, true, out["success"], out)
	assert.Equal(t, "Reservation updated successfully", out["message"])
	assert.EqualValues(t, 8, out["reservation"].(map[string]any)["party_size"])

	out = roundTrip(t, d, ModifyReservation, `{"reservation_id":"`+id+`","restaurant_id":2,"party_size":7}`)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Not enough seats available. Only 6 seats left.", out["message"])

	out = roundTrip(t, d, CancelReservation, `{"reservation_id":"`+id+`"}`)
	require.Equal(t, true, out["success"])
	assert.Equal(t, "Reservation at Bella Notte on 2025-06-01 at 19:00 has been cancelled", out["message"])

	out = roundTrip(t, d, CancelReservation, `{"reservation_id":"`+id+`"}`)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Reservation not found", out["message"])

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues(CancelReservation, metrics.OutcomeOK))+
		testutil.ToFloat64(m.ToolCalls.WithLabelValues(CancelReservation, metrics.OutcomeUnavailable)))
}

func TestExecute_PersistFailureMessage(t *testing.T) {
	dir := t.TempDir()
	d, _, store := newDispatcherIn(t, dir)

	out := roundTrip(t, d, CreateReservation, `{
		"customer_name":"Ada","customer_email":"ada@example.com",
		"restaurant_id":1,"date":"2025-06-01","time":"19:00","party_size":6}`)
	require.Equal(t, true, out["success"], out)
	id := out["reservation"].(map[string]any)["id"].(string)

	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o600))

	want := `{"success":false,"message":"The reservation could not be saved. Please try again."}`
	calls := map[string]string{
		CreateReservation: `{"customer_name":"Grace","customer_email":"grace@example.com","restaurant_id":1,"date":"2025-06-01","time":"20:00","party_size":2}`,
		ModifyReservation: `{"reservation_id":"` + id + `","party_size":2}`,
		CancelReservation: `{"reservation_id":"` + id + `"}`,
	}
	for name, args := range calls {
		t.Run(name, func(t *testing.T) {
			assert.JSONEq(t, want, d.ExecuteJSON(context.Background(), name, args))
		})
	}

	assert.Equal(t, 1, store.Len())
	out = roundTrip(t, d, GetReservation, `{"reservation_id":"`+id+`"}`)
	assert.EqualValues(t, 6, out["reservation"].(map[string]any)["party_size"])
}

func TestFailureMessage_DistinguishesPersistFromValidation(t *testing.T) {
	persist := fmt.Errorf("append: %w", repository.ErrPersist)
	invalid := fmt.Errorf("%w: customer_email is required", service.ErrInvalidInput)
	assert.Equal(t, "The reservation could not be saved. Please try again.", FailureMessage(persist))
	assert.Equal(t, invalid.Error(), FailureMessage(invalid))
}

func TestExecute_Recommend(t *testing.T) {
	d, _ := newDispatcher(t)
	out := roundTrip(t, d, RecommendRestaurants, `{"party_size":4,"date":"2025-06-01","time":"12:00"}`)
	recs := out["recommendations"].([]any)
	require.Len(t, recs, 1, "sakura house is closed at noon")
	rec := recs[0].(map[string]any)
	assert.Equal(t, "Bella Notte", rec["name"])
	assert.EqualValues(t, 10, rec["available_seats"])

	out = roundTrip(t, d, RecommendRestaurants, `{}`)
	recs = out["recommendations"].([]any)
	require.Len(t, recs, 2)
	assert.Equal(t, "Sakura House", recs[0].(map[string]any)["name"])
	assert.NotContains(t, recs[0], "available_seats")
}

func TestFlexibleNumbers(t *testing.T) {
	var a struct {
		N Int   `json:"n"`
		F Float `json:"f"`
		M Int   `json:"m"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"n":"7","f":3,"m":null}`), &a))
	assert.Equal(t, Int{Value: 7, Set: true}, a.N)
	assert.Equal(t, Float{Value: 3, Set: true}, a.F)
	assert.False(t, a.M.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"n":4.0}`), &a))
	assert.Equal(t, 4, a.N.Value)
	assert.Error(t, json.Unmarshal([]byte(`{"n":true}`), &a))
	assert.Error(t, json.Unmarshal([]byte(`{"f":"high"}`), &a))
}
