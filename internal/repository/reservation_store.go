package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationStore holds the authoritative, ordered list of reservations
// and mirrors it to a JSON file after every mutation.  Reads take a shared
// lock and return copies, so callers may hold results across mutations.
//
// Mutations are all-or-nothing with respect to the durable file: when the
// write sequence fails, the in-memory change is undone and ErrPersist is
// returned.
type ReservationStore struct {
	path  string
	mu    sync.RWMutex
	items []model.Reservation

	rename    func(oldpath, newpath string) error
	onPersist func(elapsed time.Duration, err error)
}

// StoreOption customises a ReservationStore.
type StoreOption func(*ReservationStore)

// WithPersistObserver registers a callback invoked after every durable write
// attempt with its duration and outcome.  Used for metrics.
func WithPersistObserver(fn func(elapsed time.Duration, err error)) StoreOption {
	return func(s *ReservationStore) { s.onPersist = fn }
}

// NewReservationStore returns an empty store bound to path.  Nothing is
// read until Load is called.
func NewReservationStore(path string, opts ...StoreOption) *ReservationStore {
	s := &ReservationStore{path: path, rename: os.Rename}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenReservationStore creates a store and loads the durable file.  The
// returned store is always usable; a non-nil error reports a corrupt or
// unreadable file, in which case the store starts empty.
func OpenReservationStore(path string, opts ...StoreOption) (*ReservationStore, error) {
	s := NewReservationStore(path, opts...)
	return s, s.Load()
}

// Path returns the durable file location.
func (s *ReservationStore) Path() string { return s.path }

// Load replaces the in-memory collection with the durable file contents.
// A missing file yields an empty collection and no error.  A file that
// cannot be read or decoded also yields an empty collection; the error is
// returned so the caller can report it.
func (s *ReservationStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrCorrupt, s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	var items []model.Reservation
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrCorrupt, s.path, err)
	}
	s.items = items
	return nil
}

// Persist writes the current collection to the durable file.
func (s *ReservationStore) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// Append adds a reservation at the end of the collection and persists.
func (s *ReservationStore) Append(r model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(r.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	}
	s.items = append(s.items, r)
	if err := s.persistLocked(); err != nil {
		s.items = s.items[:len(s.items)-1]
		return err
	}
	return nil
}

// Replace overwrites the stored reservation that has the same ID and
// persists.  The position in the collection is kept.
func (s *ReservationStore) Replace(r model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(r.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrReservationNotFound, r.ID)
	}
	prev := s.items[i]
	s.items[i] = r
	if err := s.persistLocked(); err != nil {
		s.items[i] = prev
		return err
	}
	return nil
}

// Remove deletes the reservation with the given ID, persists, and returns
// the removed record.
func (s *ReservationStore) Remove(id string) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
	}
	removed := s.items[i]
	prev := s.items
	next := make([]model.Reservation, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	s.items = next
	if err := s.persistLocked(); err != nil {
		s.items = prev
		return model.Reservation{}, err
	}
	return removed, nil
}

// Find returns the reservation with the given ID.
func (s *ReservationStore) Find(id string) (model.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return model.Reservation{}, false
}

// FindAll returns a copy of every reservation in insertion order.
func (s *ReservationStore) FindAll() []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, len(s.items))
	copy(out, s.items)
	return out
}

// FindByEmail returns the reservations whose customer email matches,
// ignoring case and surrounding whitespace.
func (s *ReservationStore) FindByEmail(email string) []model.Reservation {
	email = strings.TrimSpace(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for _, r := range s.items {
		if strings.EqualFold(strings.TrimSpace(r.CustomerEmail), email) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of stored reservations.
func (s *ReservationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *ReservationStore) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked serialises the collection to a temp file in the target
// directory, flushes and fsyncs it, then renames it over the durable file.
// Readers see either the old file or the complete new one.
func (s *ReservationStore) persistLocked() (err error) {
	start := time.Now()
	defer func() {
		if s.onPersist != nil {
			s.onPersist(time.Since(start), err)
		}
	}()

	items := s.items
	if items == nil {
		items = []model.Reservation{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPersist, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %w", ErrPersist, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrPersist, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp file: %w", ErrPersist, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: chmod temp file: %w", ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp file: %w", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrPersist, err)
	}
	if err := s.rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrPersist, err)
	}
	success = true

	// Make the rename itself durable.  Not every platform supports syncing
	// a directory handle, so failures here are ignored.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
