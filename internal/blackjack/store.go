// internal/blackjack/store.go
package blackjack

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the authoritative table records. Mutations follow a versioned
// read-modify-write: the mutation runs against a clone and the clone is
// swapped in, with the version bumped, only when it succeeds. A rejected
// mutation therefore leaves the stored table byte-for-byte unchanged, and no
// live mutable reference ever crosses a request boundary. Tables are
// independent; there is no cross-table locking.
type Store struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table
}

func NewStore() *Store {
	return &Store{tables: make(map[uuid.UUID]*Table)}
}

// Add registers a new table.
func (s *Store) Add(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
}

// Get returns a deep copy of the table, safe to read without racing writers.
func (s *Store) Get(id uuid.UUID) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t.Clone(), nil
}

// Update applies fn to a clone of the table and commits the clone on
// success, incrementing the version: one accepted mutation, one version
// tick. On error nothing is committed and the error is returned as-is.
func (s *Store) Update(id uuid.UUID, fn func(*Table) error) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now().UTC()
	s.tables[id] = next
	return next.Clone(), nil
}

// Delete removes a table from the store.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, id)
}

// IDs lists every table currently stored, for the deadline sweeper.
func (s *Store) IDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	return ids
}
