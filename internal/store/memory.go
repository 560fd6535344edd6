// internal/store/memory.go
//
// In-memory implementation of the session Store.
// Holds the live rounds the HTTP layer is driving.
//
// Characteristics:
//   - Stores *Session values keyed by round ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Update runs its callback under the write lock, so a round's engine is
//     never mutated by two requests at once.
//   - One live round per owner: saving a new round for an owner drops the
//     owner's previous one ("start new game").
//   - State is lost when the process restarts; finished rounds are recorded
//     by the results package.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/guessnumber/internal/game"
)

// ErrNotFound is returned for an unknown round ID.
var ErrNotFound = errors.New("not found")

// Session is a live round: the engine plus the secret it is guessing.
type Session struct {
	Engine   *game.Engine
	Target   int           // the human's number; never sent to clients
	Owner    string        // user ID or anonymous ID
	Strategy game.Strategy // picker used by Engine
	Started  time.Time
}

// ID returns the round identifier.
func (s *Session) ID() string { return s.Engine.ID() }

// Store defines the persistence interface for live rounds.
type Store interface {
	// Save adds a session, replacing any earlier session of the same owner.
	// It returns the ID of the replaced session, or "" if there was none.
	Save(ctx context.Context, s *Session) (replaced string, err error)

	// Get returns a snapshot of the round's engine.
	Get(ctx context.Context, id string) (game.Snapshot, error)

	// Update runs fn with exclusive access to the session.
	Update(ctx context.Context, id string, fn func(*Session) error) error

	// Delete drops a session. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex        // guards sessions and owners
	rounds  map[string]*Session // keyed by round ID
	byOwner map[string]string   // owner → round ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		rounds:  make(map[string]*Session),
		byOwner: make(map[string]string),
	}
}

func (m *memory) Save(ctx context.Context, s *Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var replaced string
	if s.Owner != "" {
		if prev, ok := m.byOwner[s.Owner]; ok && prev != s.ID() {
			delete(m.rounds, prev)
			replaced = prev
		}
		m.byOwner[s.Owner] = s.ID()
	}
	m.rounds[s.ID()] = s
	return replaced, nil
}

func (m *memory) Get(ctx context.Context, id string) (game.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.rounds[id]; ok {
		return s.Engine.Snapshot(), nil
	}
	return game.Snapshot{}, ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rounds[id]
	if !ok {
		return ErrNotFound
	}
	return fn(s)
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rounds[id]
	if !ok {
		return nil
	}
	if m.byOwner[s.Owner] == id {
		delete(m.byOwner, s.Owner)
	}
	delete(m.rounds, id)
	return nil
}
