// Package store persists the three record collections. Every read returns the
// whole collection and every write replaces it; there is no per-record access.
package store

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/jwalitptl/medconsult-api/internal/model"
	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
)

// Collection names one of the persisted record sets.
type Collection string

const (
	Users         Collection = "users"
	Appointments  Collection = "appointments"
	Prescriptions Collection = "prescriptions"
)

// Collections is also the lock acquisition order.
var Collections = []Collection{Users, Appointments, Prescriptions}

// ErrNotExist is returned by a Backend when a collection was never written.
var ErrNotExist = errors.New("collection does not exist")

// Backend is the durable representation of the collections. Implementations
// only move bytes; decoding and the empty-on-corruption policy live in Table.
type Backend interface {
	Read(ctx context.Context, c Collection) ([]byte, error)
	Write(ctx context.Context, c Collection, data []byte) error
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles the typed collections over one backend.
type Store struct {
	Users         *Table[model.User]
	Appointments  *Table[model.Appointment]
	Prescriptions *Table[model.Prescription]

	backend Backend
	locks   map[Collection]*sync.Mutex
}

func New(backend Backend, log *logger.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}

	locks := make(map[Collection]*sync.Mutex, len(Collections))
	for _, c := range Collections {
		locks[c] = &sync.Mutex{}
	}

	return &Store{
		Users:         newTable[model.User](Users, backend, log, m),
		Appointments:  newTable[model.Appointment](Appointments, backend, log, m),
		Prescriptions: newTable[model.Prescription](Prescriptions, backend, log, m),
		backend:       backend,
		locks:         locks,
	}
}

// Atomically runs fn while holding the locks of the given collections, so a
// load-mutate-save sequence cannot interleave with another writer in this
// process. Locks are always taken in Collections order.
func (s *Store) Atomically(ctx context.Context, fn func() error, collections ...Collection) error {
	for _, c := range Collections {
		if !contains(collections, c) {
			continue
		}
		mu := s.locks[c]
		mu.Lock()
		defer mu.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// Ping checks the backend when it supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func contains(cs []Collection, c Collection) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}
