package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Int is an optional integer argument.  Models send integers both as JSON
// numbers and as numeric strings, so both are accepted.
type Int struct {
	Value int
	Set   bool
}

// UnmarshalJSON accepts 4, 4.0 and "4".  null leaves the value unset.
func (i *Int) UnmarshalJSON(b []byte) error {
	raw, ok, err := scalar(b)
	if err != nil || !ok {
		return err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return fmt.Errorf("%q is not an integer", raw)
		}
		n = int(f)
	}
	*i = Int{Value: n, Set: true}
	return nil
}

// Float is an optional number argument, accepted as a JSON number or a
// numeric string.
type Float struct {
	Value float64
	Set   bool
}

// UnmarshalJSON accepts 4.5 and "4.5".  null leaves the value unset.
func (f *Float) UnmarshalJSON(b []byte) error {
	raw, ok, err := scalar(b)
	if err != nil || !ok {
		return err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%q is not a number", raw)
	}
	*f = Float{Value: v, Set: true}
	return nil
}

// scalar returns the textual form of a JSON number or string.  ok is false
// for null.
func scalar(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", false, nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", false, err
		}
		return strings.TrimSpace(s), true, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", false, fmt.Errorf("expected a number, got %s", b)
	}
	return n.String(), true, nil
}

type searchArgs struct {
	Location    string `json:"location"`
	Cuisine     string `json:"cuisine"`
	MinRating   Float  `json:"min_rating"`
	PriceRange  string `json:"price_range"`
	MinCapacity Int    `json:"min_capacity"`
}

type recommendArgs struct {
	Location   string `json:"location"`
	Cuisine    string `json:"cuisine"`
	PartySize  Int    `json:"party_size"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	MinRating  Float  `json:"min_rating"`
	PriceRange string `json:"price_range"`
}

type availabilityArgs struct {
	RestaurantID Int    `json:"restaurant_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PartySize    Int    `json:"party_size"`
}

func (a availabilityArgs) validate() error {
	return required(
		field{"restaurant_id", a.RestaurantID.Set},
		field{"date", a.Date != ""},
		field{"time", a.Time != ""},
		field{"party_size", a.PartySize.Set},
	)
}

type createArgs struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	RestaurantID    Int    `json:"restaurant_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       Int    `json:"party_size"`
	SpecialRequests string `json:"special_requests"`
}

func (a createArgs) validate() error {
	return required(
		field{"customer_name", strings.TrimSpace(a.CustomerName) != ""},
		field{"customer_email", strings.TrimSpace(a.CustomerEmail) != ""},
		field{"restaurant_id", a.RestaurantID.Set},
		field{"date", a.Date != ""},
		field{"time", a.Time != ""},
		field{"party_size", a.PartySize.Set},
	)
}

type reservationIDArgs struct {
	ReservationID string `json:"reservation_id"`
}

func (a reservationIDArgs) validate() error {
	return required(field{"reservation_id", strings.TrimSpace(a.ReservationID) != ""})
}

type emailArgs struct {
	CustomerEmail string `json:"customer_email"`
}

func (a emailArgs) validate() error {
	return required(field{"customer_email", strings.TrimSpace(a.CustomerEmail) != ""})
}

type modifyArgs struct {
	ReservationID   string  `json:"reservation_id"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	PartySize       Int     `json:"party_size"`
	RestaurantID    Int     `json:"restaurant_id"`
	SpecialRequests *string `json:"special_requests"`
}

func (a modifyArgs) validate() error {
	return required(field{"reservation_id", strings.TrimSpace(a.ReservationID) != ""})
}

type field struct {
	name    string
	present bool
}

func required(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required argument(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// decodeArgs decodes a tool-call argument object into v.  Unknown keys and
// trailing data are rejected.  An empty string decodes as {}.
func decodeArgs(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after arguments object")
	}
	return nil
}

func intPtr(i Int) *int {
	if !i.Set {
		return nil
	}
	v := i.Value
	return &v
}
