// Package domainstore is a thin stand-in for the domain-entity store that
// spec.md section 6 deliberately leaves out of scope for the persistence
// core: engines may stash arbitrary domain objects (by id) alongside a
// flow's step records without this package knowing anything about their
// shape. The real system behind this interface is a full repository (see
// the chem-persistence/domain_persistence crate this was distilled from);
// here only the CRUD surface a step handler actually needs is implemented.
package domainstore

import (
	"context"
	"sync"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// Store is the minimal domain-entity contract: get/put/delete a named
// entity plus its properties, scoped by an opaque string id. Engines treat
// it as an external collaborator, never reaching into its storage details.
type Store interface {
	Get(ctx context.Context, id string) (map[string]any, error)
	Put(ctx context.Context, id string, entity map[string]any) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	SetProperty(ctx context.Context, id, key string, value any) error
	GetProperty(ctx context.Context, id, key string) (any, error)
}

// InMemory is the reference Store implementation, used by engine tests and
// by flowctl when no external domain store is configured.
type InMemory struct {
	mu       sync.Mutex
	entities map[string]map[string]any
}

// NewInMemory returns an empty in-memory domain store.
func NewInMemory() *InMemory {
	return &InMemory{entities: make(map[string]map[string]any)}
}

const op = "domainstore"

func (s *InMemory) Get(_ context.Context, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, flowtypes.NotFound(op+".Get", nil)
	}
	out := make(map[string]any, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out, nil
}

func (s *InMemory) Put(_ context.Context, id string, entity map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := make(map[string]any, len(entity))
	for k, v := range entity {
		c[k] = v
	}
	s.entities[id] = c
	return nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return flowtypes.NotFound(op+".Delete", nil)
	}
	delete(s.entities, id)
	return nil
}

func (s *InMemory) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entities))
	for id := range s.entities {
		out = append(out, id)
	}
	return out, nil
}

func (s *InMemory) SetProperty(_ context.Context, id, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return flowtypes.NotFound(op+".SetProperty", nil)
	}
	e[key] = value
	return nil
}

func (s *InMemory) GetProperty(_ context.Context, id, key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, flowtypes.NotFound(op+".GetProperty", nil)
	}
	v, ok := e[key]
	if !ok {
		return nil, flowtypes.NotFound(op+".GetProperty", nil)
	}
	return v, nil
}
