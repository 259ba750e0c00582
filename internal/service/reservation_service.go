// Package service implements the reservation lifecycle on top of the
// catalog, the reservation store and the availability engine.  It is the
// only component that mutates reservations; the HTTP handlers and the tool
// adapter both go through it.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/catalog"
	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// EventPublisher receives lifecycle events after a mutation is durable.
// *queue.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ReservationService enforces the create/modify/cancel invariants.  A single
// mutex is held across the availability check, the mutation and the durable
// write, so two requests for the same slot can never both pass the check.
// Events are published before the mutex is released, so the queue sees the
// mutations of one reservation in the order they were applied.
type ReservationService struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	store   *repository.ReservationStore
	engine  *availability.Engine
	retired map[string]struct{}

	events  EventPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
	randN   func(n int) int
}

// Option customises a ReservationService.
type Option func(*ReservationService)

// WithEvents publishes lifecycle events to p.
func WithEvents(p EventPublisher) Option {
	return func(s *ReservationService) { s.events = p }
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReservationService) { s.metrics = m }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *ReservationService) { s.logger = l }
}

// WithClock overrides the time source used for IDs and created_at.
func WithClock(now func() time.Time) Option {
	return func(s *ReservationService) { s.now = now }
}

// WithRandom overrides the source of ID suffixes.  fn(n) must return a
// value in [0, n).
func WithRandom(fn func(n int) int) Option {
	return func(s *ReservationService) { s.randN = fn }
}

// New builds a service over cat and store.
func New(cat *catalog.Catalog, store *repository.ReservationStore, opts ...Option) *ReservationService {
	s := &ReservationService{
		catalog: cat,
		store:   store,
		engine:  availability.NewEngine(cat, store),
		retired: make(map[string]struct{}),
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/iliyamo/restaurant-reservation/internal/service"),
		now:     time.Now,
		randN:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries the fields of a new reservation.
type CreateRequest struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	RestaurantID    int    `json:"restaurant_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PartySize       int    `json:"party_size"`
	SpecialRequests string `json:"special_requests"`
}

// Update lists the fields a modification may change.  Nil fields are left
// as they are.
type Update struct {
	CustomerName    *string `json:"customer_name,omitempty"`
	CustomerEmail   *string `json:"customer_email,omitempty"`
	RestaurantID    *int    `json:"restaurant_id,omitempty"`
	Date            *string `json:"date,omitempty"`
	Time            *string `json:"time,omitempty"`
	PartySize       *int    `json:"party_size,omitempty"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

func (u Update) touchesSlot() bool {
	return u.RestaurantID != nil || u.Date != nil || u.Time != nil || u.PartySize != nil
}

// Confirmation is the successful outcome of a mutation.
type Confirmation struct {
	Reservation model.Reservation `json:"reservation"`
	Message     string            `json:"message"`
}

// Search filters the catalog.
func (s *ReservationService) Search(f catalog.Filter) []model.Restaurant {
	return s.catalog.Search(f)
}

// Restaurant returns one catalog row.
func (s *ReservationService) Restaurant(id int) (model.Restaurant, error) {
	return s.catalog.Get(id)
}

// CheckAvailability runs the availability engine for q.
func (s *ReservationService) CheckAvailability(ctx context.Context, q availability.Query) availability.Result {
	_, span := s.tracer.Start(ctx, "reservation.check_availability",
		trace.WithAttributes(attribute.Int("restaurant_id", q.RestaurantID), attribute.Int("party_size", q.PartySize)))
	defer span.End()

	res := s.engine.Check(q)
	span.SetAttributes(attribute.String("code", string(res.Code)))
	s.metrics.ObserveAvailability(string(res.Code))
	return res
}

// Get returns the reservation with the given ID.
func (s *ReservationService) Get(id string) (model.Reservation, error) {
	r, ok := s.store.Find(strings.TrimSpace(id))
	if !ok {
		return model.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
	}
	return r, nil
}

// ListByEmail returns the reservations booked under email, ignoring case.
func (s *ReservationService) ListByEmail(email string) []model.Reservation {
	return s.store.FindByEmail(email)
}

// Create books a new reservation when the slot has room.
func (s *ReservationService) Create(ctx context.Context, req CreateRequest) (Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.create",
		trace.WithAttributes(attribute.Int("restaurant_id", req.RestaurantID), attribute.Int("party_size", req.PartySize)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.createLocked(req)
	s.finish(span, "create", err)
	if err != nil {
		return Confirmation{}, err
	}
	s.publish(ctx, queue.EventCreated, r)
	return Confirmation{
		Reservation: r,
		Message:     fmt.Sprintf("Reservation confirmed at %s for %d people on %s at %s", r.RestaurantName, r.PartySize, r.Date, r.Time),
	}, nil
}

func (s *ReservationService) createLocked(req CreateRequest) (model.Reservation, error) {
	name := strings.TrimSpace(req.CustomerName)
	email := strings.TrimSpace(req.CustomerEmail)
	if name == "" {
		return model.Reservation{}, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	if email == "" {
		return model.Reservation{}, fmt.Errorf("%w: customer email is required", ErrInvalidInput)
	}


	res := s.engine.Check(availability.Query{
		RestaurantID: req.RestaurantID,
		Date:         req.Date,
		Time:         req.Time,
		PartySize:    req.PartySize,
	})
	s.metrics.ObserveAvailability(string(res.Code))
	if !res.Available {
		return model.Reservation{}, &UnavailableError{Result: res}
	}

	now := s.now()
	id, err := s.newIDLocked(now)
	if err != nil {
		return model.Reservation{}, err
	}
	r := model.Reservation{
		ID:              id,
		CustomerName:    name,
		CustomerEmail:   email,
		RestaurantID:    req.RestaurantID,
		RestaurantName:  res.Restaurant.Name,
		Date:            canonical(model.CanonicalDate, req.Date),
		Time:            canonical(model.CanonicalTime, req.Time),
		PartySize:       req.PartySize,
		SpecialRequests: req.SpecialRequests,
		CreatedAt:       now.Format(model.CreatedAtLayout),
	}
	if err := s.store.Append(r); err != nil {
		return model.Reservation{}, err
	}
	return r, nil
}

// Modify applies u to the reservation with the given ID.  When the slot or
// party size changes, availability is re-checked first; on failure nothing
// is changed.
func (s *ReservationService) Modify(ctx context.Context, id string, u Update) (Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.modify", trace.WithAttributes(attribute.String("reservation_id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.modifyLocked(strings.TrimSpace(id), u)
	s.finish(span, "modify", err)
	if err != nil {
		return Confirmation{}, err
	}
	s.publish(ctx, queue.EventModified, r)
	return Confirmation{Reservation: r, Message: "Reservation updated successfully"}, nil
}

func (s *ReservationService) modifyLocked(id string, u Update) (model.Reservation, error) {

	cur, ok := s.store.Find(id)
	if !ok {
		return model.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
	}
	next := cur

	if u.touchesSlot() {
		q := availability.Query{
			RestaurantID: pick(u.RestaurantID, cur.RestaurantID),
			Date:         pick(u.Date, cur.Date),
			Time:         pick(u.Time, cur.Time),
			PartySize:    pick(u.PartySize, cur.PartySize),
		}

		var res availability.Result
		checked := true
		switch {
		case q.RestaurantID != cur.RestaurantID:
			// Moving restaurants: the current booking holds no seats there.
			res = s.engine.Check(q)
		case !cur.InSlot(q.RestaurantID, q.Date, q.Time) || q.PartySize != cur.PartySize:
			res = s.engine.CheckExcluding(q, cur.ID)
		default:
			checked = false
		}
		if checked {
			s.metrics.ObserveAvailability(string(res.Code))
			if !res.Available {
				return model.Reservation{}, &UnavailableError{Result: res}
			}
			next.RestaurantID = q.RestaurantID
			next.RestaurantName = res.Restaurant.Name
			next.Date = canonical(model.CanonicalDate, q.Date)
			next.Time = canonical(model.CanonicalTime, q.Time)
			next.PartySize = q.PartySize
		}
	}

	if u.CustomerName != nil {
		name := strings.TrimSpace(*u.CustomerName)
		if name == "" {
			return model.Reservation{}, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
		}
		next.CustomerName = name
	}
	if u.CustomerEmail != nil {
		email := strings.TrimSpace(*u.CustomerEmail)
		if email == "" {
			return model.Reservation{}, fmt.Errorf("%w: customer email is required", ErrInvalidInput)
		}
		next.CustomerEmail = email
	}
	if u.SpecialRequests != nil {
		next.SpecialRequests = *u.SpecialRequests
	}

	if err := s.store.Replace(next); err != nil {
		return model.Reservation{}, err
	}
	return next, nil
}

// Cancel removes the reservation with the given ID.  Cancelled IDs are never
// reissued by this process.
func (s *ReservationService) Cancel(ctx context.Context, id string) (Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.cancel", trace.WithAttributes(attribute.String("reservation_id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.cancelLocked(strings.TrimSpace(id))
	s.finish(span, "cancel", err)
	if err != nil {
		return Confirmation{}, err
	}
	s.publish(ctx, queue.EventCancelled, r)
	return Confirmation{
		Reservation: r,
		Message:     fmt.Sprintf("Reservation at %s on %s at %s has been cancelled", r.RestaurantName, r.Date, r.Time),
	}, nil
}

func (s *ReservationService) cancelLocked(id string) (model.Reservation, error) {

	r, err := s.store.Remove(id)
	if err != nil {
		return model.Reservation{}, err
	}
	s.retired[r.ID] = struct{}{}
	return r, nil
}

// idSuffixes is the size of the three-digit suffix space 100..999.
const idSuffixes = 900

// newIDLocked returns "RES-<YYYYMMDDHHMMSS>-<NNN>".  The suffix starts at a
// random offset and probes linearly, so every free suffix for the second is
// eventually found.
func (s *ReservationService) newIDLocked(now time.Time) (string, error) {
	stamp := now.Format("20060102150405")
	start := s.randN(idSuffixes)
	for i := 0; i < idSuffixes; i++ {
		id := fmt.Sprintf("RES-%s-%03d", stamp, 100+(start+i)%idSuffixes)
		if _, taken := s.store.Find(id); taken {
			continue
		}
		if _, gone := s.retired[id]; gone {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("%w: %s", ErrIDExhausted, stamp)
}

func (s *ReservationService) publish(ctx context.Context, t queue.EventType, r model.Reservation) {
	if s.events == nil {
		return
	}
	ev := queue.NewEvent(t, r, s.now())
	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.ObservePublishFailure()
		s.logger.Warn("publish reservation event failed", "type", t, "reservation_id", r.ID, "error", err)
	}
}

func (s *ReservationService) finish(span trace.Span, op string, err error) {
	outcome := Outcome(err)
	s.metrics.ObserveOp(op, outcome)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil && outcome == metrics.OutcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("reservation operation failed", "op", op, "error", err)
	}
}

// Outcome maps an operation error to a metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case isNotFound(err):
		return metrics.OutcomeNotFound
	case isInvalid(err):
		return metrics.OutcomeInvalid
	}
	if _, ok := AsUnavailable(err); ok {
		return metrics.OutcomeUnavailable
	}
	return metrics.OutcomeError
}

func pick[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}

func canonical(f func(string) (string, error), s string) string {
	if c, err := f(s); err == nil {
		return c
	}
	return s
}
