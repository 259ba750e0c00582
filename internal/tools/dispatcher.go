package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/catalog"
	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// Service is the part of *service.ReservationService the tools call.
type Service interface {
	Search(f catalog.Filter) []model.Restaurant
	Recommend(ctx context.Context, c service.RecommendCriteria) []service.Recommendation
	CheckAvailability(ctx context.Context, q availability.Query) availability.Result
	Create(ctx context.Context, req service.CreateRequest) (service.Confirmation, error)
	Get(id string) (model.Reservation, error)
	ListByEmail(email string) []model.Reservation
	Modify(ctx context.Context, id string, u service.Update) (service.Confirmation, error)
	Cancel(ctx context.Context, id string) (service.Confirmation, error)
}

// ErrorResult is returned for unknown tools, malformed arguments and
// unexpected faults.
type ErrorResult struct {
	Error string `json:"error"`
}

// MutationResult is returned by the create, modify and cancel tools.
type MutationResult struct {
	Success     bool               `json:"success"`
	Reservation *model.Reservation `json:"reservation,omitempty"`
	Message     string             `json:"message"`
}

// Dispatcher routes tool calls to the reservation service.
type Dispatcher struct {
	svc     Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher returns a dispatcher over svc.  m may be nil.
func NewDispatcher(svc Service, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{svc: svc, metrics: m, logger: logger}
}

// Execute runs the named tool with a JSON argument object and returns a
// value ready for json.Marshal.  It never returns a Go error: every failure
// is reported inside the result so the caller can hand it back to the model.
func (d *Dispatcher) Execute(ctx context.Context, name, args string) (result any) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", name, "panic", r)
			result = ErrorResult{Error: fmt.Sprintf("Error executing %s: %v", name, r)}
		}
		d.metrics.ObserveTool(name, outcomeOf(result))
	}()

	switch name {
	case SearchRestaurants:
		var a searchArgs
		if err := decodeArgs(args, &a); err != nil {
			return badArgs(name, err)
		}
		return map[string]any{"results": d.svc.Search(catalog.Filter{
			Location:    a.Location,
			Cuisine:     a.Cuisine,
			MinRating:   a.MinRating.Value,
			PriceRange:  a.PriceRange,
			MinCapacity: a.MinCapacity.Value,
		})}

	case RecommendRestaurants:
		var a recommendArgs
		if err := decodeArgs(args, &a); err != nil {
			return badArgs(name, err)
		}
		return map[string]any{"recommendations": d.svc.Recommend(ctx, service.RecommendCriteria{
			Filter: catalog.Filter{
				Location:   a.Location,
				Cuisine:    a.Cuisine,
				MinRating:  a.MinRating.Value,
				PriceRange: a.PriceRange,
			},
			Date:      a.Date,
			Time:      a.Time,
			PartySize: a.PartySize.Value,
		})}

	case CheckAvailability:
		var a availabilityArgs
		if err := decode(args, &a, func() error { return a.validate() }); err != nil {
			return badArgs(name, err)
		}
		return d.svc.CheckAvailability(ctx, availability.Query{
			RestaurantID: a.RestaurantID.Value,
			Date:         a.Date,
			Time:         a.Time,
			PartySize:    a.PartySize.Value,
		})

	case CreateReservation:
		var a createArgs
		if err := decode(args, &a, func() error { return a.validate() }); err != nil {
			return badArgs(name, err)
		}
		conf, err := d.svc.Create(ctx, service.CreateRequest{
			CustomerName:    a.CustomerName,
			CustomerEmail:   a.CustomerEmail,
			RestaurantID:    a.RestaurantID.Value,
			Date:            a.Date,
			Time:            a.Time,
			PartySize:       a.PartySize.Value,
			SpecialRequests: a.SpecialRequests,
		})
		return d.mutation(name, conf, err)

	case GetReservation:
		var a reservationIDArgs
		if err := decode(args, &a, func() error { return a.validate() }); err != nil {
			return badArgs(name, err)
		}
		r, err := d.svc.Get(a.ReservationID)
		if err != nil {
			return map[string]any{"reservation": nil}
		}
		return map[string]any{"reservation": r}

	case GetReservationsByEmail:
		var a emailArgs
		if err := decode(args, &a, func() error { return a.validate() }); err != nil {
			return badArgs(name, err)
		}
		return map[string]any{"reservations": d.svc.ListByEmail(a.CustomerEmail)}

	case ModifyReservation:
		var a modifyArgs
		if err := decode(args, &a, func() error { return a.validate() }); err != nil {
			return badArgs(name, err)
		}
		conf, err := d.svc.Modify(ctx, a.ReservationID, service.Update{
			RestaurantID:    intPtr(a.RestaurantID),
			Date:            a.Date,
			Time:            a.Time,
			PartySize:       intPtr(a.PartySize),
			SpecialRequests: a.SpecialRequests,
		})
		return d.mutation(name, conf, err)

	case CancelReservation:
		var a reservationIDArgs
		if err := decode(args, &a, func() error { return a.validate() }); err != nil {
			return badArgs(name, err)
		}
		conf, err := d.svc.Cancel(ctx, a.ReservationID)
		return d.mutation(name, conf, err)

	default:
		return ErrorResult{Error: "Unknown function: " + name}
	}
}

// ExecuteJSON is Execute with the result encoded as a JSON string, the form
// a tool message carries back to the model.
func (d *Dispatcher) ExecuteJSON(ctx context.Context, name, args string) string {
	out, err := json.Marshal(d.Execute(ctx, name, args))
	if err != nil {
		out, _ = json.Marshal(ErrorResult{Error: fmt.Sprintf("Error executing %s: %v", name, err)})
	}
	return string(out)
}

func (d *Dispatcher) mutation(name string, conf service.Confirmation, err error) MutationResult {
	if err == nil {
		r := conf.Reservation
		return MutationResult{Success: true, Reservation: &r, Message: conf.Message}
	}
	if errors.Is(err, repository.ErrPersist) || service.Outcome(err) == metrics.OutcomeError {
		d.logger.Error("tool mutation failed", "tool", name, "error", err)
	}
	return MutationResult{Success: false, Message: FailureMessage(err)}
}

// FailureMessage renders a service error the way it is shown to customers.
func FailureMessage(err error) string {
	if ue, ok := service.AsUnavailable(err); ok {
		return ue.Result.Reason
	}
	switch {
	case errors.Is(err, service.ErrReservationNotFound):
		return "Reservation not found"
	case errors.Is(err, service.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, repository.ErrPersist):
		return "The reservation could not be saved. Please try again."
	default:
		return err.Error()
	}
}

func decode(args string, v any, validate func() error) error {
	if err := decodeArgs(args, v); err != nil {
		return err
	}
	return validate()
}

func badArgs(name string, err error) ErrorResult {
	return ErrorResult{Error: fmt.Sprintf("Invalid arguments for %s: %v", name, err)}
}

func outcomeOf(result any) string {
	switch r := result.(type) {
	case ErrorResult:
		return metrics.OutcomeInvalid
	case MutationResult:
		if !r.Success {
			return metrics.OutcomeUnavailable
		}
	case availability.Result:
		if !r.Available {
			return metrics.OutcomeUnavailable
		}
	}
	return metrics.OutcomeOK
}
