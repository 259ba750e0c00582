// Package tools exposes the reservation service as OpenAI function tools: a
// fixed set of definitions with JSON-Schema parameters, and a dispatcher
// that decodes tool-call arguments and returns JSON-serialisable results.
package tools

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool names.
const (
	SearchRestaurants      = "search_restaurants"
	RecommendRestaurants   = "recommend_restaurants"
	CheckAvailability      = "check_availability"
	CreateReservation      = "create_reservation"
	GetReservation         = "get_reservation"
	GetReservationsByEmail = "get_reservations_by_email"
	ModifyReservation      = "modify_reservation"
	CancelReservation      = "cancel_reservation"
)

const (
	descDate       = "Date for the reservation (YYYY-MM-DD format)"
	descTime       = "Time for the reservation (HH:MM format in 24-hour)"
	descPartySize  = "Number of people in the party"
	descPriceRange = "Price range ($ = budget, $$ = mid-range, $$$ = high-end, $$$$ = fine dining)"
)

func str(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: desc}
}

func integer(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Integer, Description: desc}
}

func number(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Number, Description: desc}
}

func function(name, desc string, props map[string]jsonschema.Definition, required ...string) openai.Tool {
	if required == nil {
		required = []string{}
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: desc,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: props,
				Required:   required,
			},
		},
	}
}

// Definitions returns the eight reservation tools in a stable order.
func Definitions() []openai.Tool {
	return []openai.Tool{
		function(SearchRestaurants, "Search for restaurants based on location, cuisine type, or other criteria",
			map[string]jsonschema.Definition{
				"location":     str("The area or district where the restaurant is located"),
				"cuisine":      str("The type of cuisine (e.g., Italian, Chinese, Seafood)"),
				"min_rating":   number("Minimum rating of the restaurant (1-5)"),
				"price_range":  str(descPriceRange),
				"min_capacity": integer("Minimum seating capacity required"),
			}),
		function(RecommendRestaurants, "Get restaurant recommendations based on user preferences and availability",
			map[string]jsonschema.Definition{
				"location":    str("Preferred location or area"),
				"cuisine":     str("Preferred cuisine type"),
				"party_size":  integer(descPartySize),
				"date":        str(descDate),
				"time":        str(descTime),
				"min_rating":  number("Minimum rating (1-5)"),
				"price_range": str(descPriceRange),
			}),
		function(CheckAvailability, "Check if a specific restaurant has availability for a given date, time, and party size",
			map[string]jsonschema.Definition{
				"restaurant_id": integer("ID of the restaurant"),
				"date":          str(descDate),
				"time":          str(descTime),
				"party_size":    integer(descPartySize),
			}, "restaurant_id", "date", "time", "party_size"),
		function(CreateReservation, "Create a new reservation at a restaurant",
			map[string]jsonschema.Definition{
				"customer_name":    str("Full name of the customer"),
				"customer_email":   str("Email address of the customer"),
				"restaurant_id":    integer("ID of the restaurant"),
				"date":             str(descDate),
				"time":             str(descTime),
				"party_size":       integer(descPartySize),
				"special_requests": str("Any special requests or notes for the reservation"),
			}, "customer_name", "customer_email", "restaurant_id", "date", "time", "party_size"),
		function(GetReservation, "Get details of a specific reservation by ID",
			map[string]jsonschema.Definition{
				"reservation_id": str("Unique ID of the reservation"),
			}, "reservation_id"),
		function(GetReservationsByEmail, "Get all reservations for a customer by email",
			map[string]jsonschema.Definition{
				"customer_email": str("Email address of the customer"),
			}, "customer_email"),
		function(ModifyReservation, "Modify an existing reservation",
			map[string]jsonschema.Definition{
				"reservation_id":   str("ID of the reservation to modify"),
				"date":             str("New date for the reservation (YYYY-MM-DD format)"),
				"time":             str("New time for the reservation (HH:MM format in 24-hour)"),
				"party_size":       integer("New number of people in the party"),
				"restaurant_id":    integer("ID of a new restaurant (if changing location)"),
				"special_requests": str("Updated special requests"),
			}, "reservation_id"),
		function(CancelReservation, "Cancel an existing reservation",
			map[string]jsonschema.Definition{
				"reservation_id": str("ID of the reservation to cancel"),
			}, "reservation_id"),
	}
}

// Names returns the tool names in definition order.
func Names() []string {
	defs := Definitions()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Function.Name
	}
	return out
}
