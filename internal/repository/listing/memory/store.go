// Package memory is an in-process listing store that evaluates query plans directly.
// It serves local development and tests where no listing database is available.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/domain/plan"
)

// Store holds listings in insertion order. Thread-safe via sync.RWMutex.
type Store struct {
	mu       sync.RWMutex
	listings []domain.Listing
	index    map[string]int
	limit    int
}

// New creates an empty store. limit caps every result set (0 = no cap).
func New(limit int) *Store {
	return &Store{index: make(map[string]int), limit: limit}
}

// LoadFile adds the listings of a JSON array file.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	for _, l := range listings {
		s.Put(l)
	}
	return nil
}

// Put adds or replaces a listing by id.
func (s *Store) Put(l domain.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.Distance = nil
	if i, ok := s.index[l.ID]; ok {
		s.listings[i] = l
		return
	}
	s.index[l.ID] = len(s.listings)
	s.listings = append(s.listings, l)
}

// Len returns the number of stored listings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Execute evaluates the plan stage by stage over a snapshot of the store.
func (s *Store) Execute(_ context.Context, p plan.Plan) ([]domain.Listing, error) {
	if p.HasUnresolvedLocation() {
		return nil, domain.ErrUnresolvedLocation
	}

	s.mu.RLock()
	rows := make([]domain.Listing, len(s.listings))
	copy(rows, s.listings)
	s.mu.RUnlock()

	for _, st := range p {
		var err error
		rows, err = apply(rows, st)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrListingStore, err)
		}
	}
	if s.limit > 0 && len(rows) > s.limit {
		rows = rows[:s.limit]
	}
	return rows, nil
}

func apply(rows []domain.Listing, st plan.Stage) ([]domain.Listing, error) {
	switch v := st.(type) {
	case plan.Filter:
		return filter(rows, v)
	case plan.Proximity:
		return near(rows, v), nil
	case plan.Opaque:
		return opaque(rows, v), nil
	default:
		return rows, nil
	}
}

func filter(rows []domain.Listing, f plan.Filter) ([]domain.Listing, error) {
	out := rows[:0:0]
	for _, l := range rows {
		ok, err := matchesAll(l, f.Conditions)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// near keeps listings within the radius, nearest first, and records the distance.
func near(rows []domain.Listing, p plan.Proximity) []domain.Listing {
	out := rows[:0:0]
	for _, l := range rows {
		loc := l.Address.Location
		if loc == nil {
			continue
		}
		d := p.Near.DistanceTo(domain.Coordinates{Lon: loc.Coordinates[0], Lat: loc.Coordinates[1]})
		if p.MaxDistance > 0 && d > p.MaxDistance {
			continue
		}
		l.Distance = &d
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	return out
}

func opaque(rows []domain.Listing, o plan.Opaque) []domain.Listing {
	switch o.Stage {
	case plan.StageLimit:
		if n, ok := o.Value.(int64); ok && int(n) < len(rows) {
			return rows[:n]
		}
	case plan.StageSkip:
		if n, ok := o.Value.(int64); ok {
			if int(n) >= len(rows) {
				return rows[:0]
			}
			return rows[n:]
		}
	case plan.StageSort:
		if order, ok := o.Value.(plan.SortOrder); ok {
			sortRows(rows, order)
		}
	}
	return rows
}

func sortRows(rows []domain.Listing, order plan.SortOrder) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range order {
			c := compareField(rows[i], rows[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
