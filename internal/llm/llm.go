package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"analysis-backend/internal/analyses"
)

var (
	// ErrProvider wraps every failure reported by a provider call.
	ErrProvider = errors.New("provider error")
	// ErrUnknownProvider is returned for names missing from the registry.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Client runs one analysis unit and returns the model's text output.
type Client interface {
	RunUnit(ctx context.Context, input UnitInput) (string, error)
}

// UnitInput carries everything a provider needs for one (phase, chunk) unit.
type UnitInput struct {
	AnalysisType analyses.AnalysisType
	Phase        analyses.Phase
	PhaseIndex   int
	PhaseCount   int
	ChunkIndex   int
	ChunkCount   int
	Text         string
	// PriorOutput is the previous phase's output for the same chunk.
	PriorOutput string
}

// StatusError reports a non-success provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Is makes every StatusError match ErrProvider.
func (e *StatusError) Is(target error) bool { return target == ErrProvider }

// Wrap tags err as a provider failure unless it already is one or is a
// context error.
func Wrap(provider string, err error) error {
	if err == nil || errors.Is(err, ErrProvider) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrProvider, provider, err)
}

// Registry maps provider names to clients. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds or replaces the client for name.
func (r *Registry) Register(name string, client Client) {
	name = normalizeName(name)
	if name == "" || client == nil {
		return
	}
	r.mu.Lock()
	r.clients[name] = client
	r.mu.Unlock()
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (Client, error) {
	r.mu.RLock()
	client, ok := r.clients[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return client, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
