package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analysis-backend/internal/llm"
)

func TestRegistryLifecycle(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	providers := llm.NewRegistry()
	providers.Register("echo", llm.EchoClient{})
	reg := NewRegistry(Options{Provider: "echo", Providers: providers, Now: func() time.Time { return now }})

	a := reg.Create()
	b := reg.Create()
	require.NotEqual(t, a.ID(), b.ID())

	got, err := reg.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Len(t, reg.List(), 2)

	require.NoError(t, reg.Delete(b.ID()))
	_, err = reg.Get(b.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, reg.Delete(b.ID()), ErrNotFound)

	now = now.Add(3 * time.Hour)
	fresh := reg.Create()
	assert.Equal(t, 1, reg.Prune(2*time.Hour))
	_, err = reg.Get(a.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestRegistryPruneKeepsActiveSessions(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	client := newScriptedClient(true)
	providers := llm.NewRegistry()
	providers.Register("fake", client)
	reg := NewRegistry(Options{Provider: "fake", Providers: providers, Now: func() time.Time { return now }})

	s := reg.Create()
	require.NoError(t, s.LoadText("busy words"))
	require.NoError(t, s.StartAnalysis(context.Background()))
	awaitCall(t, client)

	now = now.Add(24 * time.Hour)
	assert.Equal(t, 0, reg.Prune(time.Hour))

	close(client.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, reg.CloseAll(ctx))
	assert.Empty(t, reg.List())
}
