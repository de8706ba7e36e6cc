// Package runstore holds completed run reports in memory, keyed by a
// uuid.New() run id, mirroring qplay's internal/qservice programStore
// (a mutex-guarded map) but storing aggregate.Report/time-series output
// instead of saved circuit programs.
package runstore

import (
	"sync"

	"github.com/google/uuid"
	"github.com/kegliz/qkqest/internal/aggregate"
)

// RunRecord is everything one simulator invocation produced: its KQ
// report plus three integer series served as usage/ages/storage,
// addressable by run id through the HTTP introspection server. The store
// keeps whatever series the caller supplies; pipeline.Run fills Usage with
// one peak live-qubit count per leaf and leaves Ages and Storage empty.
type RunRecord struct {
	ID      string
	Report  aggregate.Report
	Usage   []int
	Ages    []int
	Storage []int
}

// Store is an in-memory, concurrency-safe map of run id to RunRecord.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// New creates an empty run store.
func New() *Store {
	return &Store{runs: make(map[string]*RunRecord)}
}

// Put assigns a new uuid to rec and stores it, returning the assigned id.
func (s *Store) Put(rec RunRecord) string {
	id := uuid.New().String()
	rec.ID = id
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = &rec
	return id
}

// Get returns the record for id, or false if no such run exists.
func (s *Store) Get(id string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

// List returns every stored run id.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids
}
