package settings

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// MemoryRepository keeps settings in memory. It backs tests and dry runs.
type MemoryRepository struct {
	values map[string]any
	// PutErr, when set, is returned by every Put.
	PutErr error
	mu     sync.Mutex
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{values: make(map[string]any)}
}

// Get implements Store.
func (r *MemoryRepository) Get(_ context.Context, key string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return value, nil
}

// Put implements Store.
func (r *MemoryRepository) Put(_ context.Context, values map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.PutErr != nil {
		return r.PutErr
	}

	maps.Copy(r.values, values)

	return nil
}
