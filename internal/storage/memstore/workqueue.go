package memstore

import (
	"context"

	"github.com/chemgl/flowstate/internal/flowtypes"
)

// EnqueueWork and ClaimWork are the supplemental worker-claim queue
// (SPEC_FULL.md section D), grounded on the original flow crate's
// InMemoryWorkerPool: a plain FIFO behind a mutex, no per-worker routing.
func (s *Store) EnqueueWork(_ context.Context, item flowtypes.WorkItem) error {
	s.queueMu.Lock()
	s.queue = append(s.queue, item)
	s.queueMu.Unlock()
	return nil
}

func (s *Store) ClaimWork(_ context.Context, _ string) (*flowtypes.WorkItem, error) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return nil, nil
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	return &item, nil
}

func (s *Store) Close() error { return nil }
