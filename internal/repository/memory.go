package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

// MemoryStore keeps runs in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]models.SimulationRun
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]models.SimulationRun),
	}
}

func (s *MemoryStore) Save(ctx context.Context, run models.SimulationRun) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if run.ID != "" {
		return "", fmt.Errorf("%w: %s", ErrAlreadyPersisted, run.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := newRunID()
	s.runs[id] = run.WithID(id)
	s.order = append(s.order, id)
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.SimulationRun, error) {
	if err := ctx.Err(); err != nil {
		return models.SimulationRun{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return models.SimulationRun{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]models.SimulationRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]models.SimulationRun, 0, len(s.order))
	// newest insertion first so equal timestamps keep a stable order
	for i := len(s.order) - 1; i >= 0; i-- {
		run := s.runs[s.order[i]]
		if !filter.Since.IsZero() && run.CreatedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, run)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := minInt(filter.offset(), len(matched))
	end := minInt(start+filter.limit(), len(matched))
	return matched[start:end], nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
