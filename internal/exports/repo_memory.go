package exports

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// MemoryRepo is an in-memory implementation of ExportsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Export
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Export)}
}

// Create stores an export.
func (r *MemoryRepo) Create(ctx context.Context, exp Export) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[exp.ID] = exp
	return nil
}

// GetByID returns an export by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Export, error) {
	if err := ctx.Err(); err != nil {
		return Export{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.byID[id]
	if !ok {
		return Export{}, ErrNotFound
	}
	return exp, nil
}

// ListBySession returns a session's exports, newest first.
func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string) ([]Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := lo.Filter(lo.Values(r.byID), func(e Export, _ int) bool {
		return e.SessionID == sessionID
	})
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ ExportsRepo = (*MemoryRepo)(nil)
