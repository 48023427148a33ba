package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"analysis-backend/internal/shared/telemetry"
)

// Registry holds live sessions in memory.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	newID    func() string
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		opts:     opts.withDefaults(),
		newID:    uuid.NewString,
	}
}

// Options returns the defaults applied to new sessions.
func (r *Registry) Options() Options {
	return r.opts
}

func (r *Registry) Create() *Session {
	s := New(r.newID(), r.opts)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

// List returns sessions ordered by id.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := lo.Values(r.sessions)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Prune closes idle sessions untouched for longer than maxAge. Sessions with
// an active job are kept.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := r.opts.Now().Add(-maxAge)
	r.mu.Lock()
	stale := lo.PickBy(r.sessions, func(_ string, s *Session) bool {
		return !s.Active() && s.LastActivity().Before(cutoff)
	})
	for id := range stale {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		telemetry.Info("sessions.pruned", map[string]any{
			"count":   len(stale),
			"max_age": maxAge.String(),
		})
	}
	return len(stale)
}

// CloseAll stops every session and waits for their runs to wind down.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	all := lo.Values(r.sessions)
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
	for _, s := range all {
		if err := s.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
