package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/exports"
	"analysis-backend/internal/llm"
	"analysis-backend/internal/sessions"
	"analysis-backend/internal/shared/storage/object/local"
)

type blockingClient struct{}

func (blockingClient) RunUnit(ctx context.Context, _ llm.UnitInput) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestRegistry(t *testing.T) *sessions.Registry {
	t.Helper()
	providers := llm.NewRegistry()
	providers.Register("echo", llm.EchoClient{})
	providers.Register("slow", blockingClient{})
	return sessions.NewRegistry(sessions.Options{
		MaxWordsPerChunk: 10,
		AnalysisType:     analyses.TypeCognitive,
		Provider:         "echo",
		Providers:        providers,
		MaxAttempts:      1,
		Exports:          &exports.Service{Store: local.New(t.TempDir()), Repo: exports.NewMemoryRepo()},
	})
}

func TestAnalyzeRunsToCompletion(t *testing.T) {
	reg := newTestRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	resp, err := analyze(ctx, reg, Request{
		Text:     "one two three four five six seven eight nine ten eleven twelve",
		Sections: []int{2},
	})
	require.NoError(t, err)
	assert.Equal(t, string(analyses.StatusCompleted), resp.Status)
	assert.Positive(t, resp.UnitsTotal)
	assert.Equal(t, resp.UnitsTotal, resp.UnitsProcessed)
	assert.NotEmpty(t, resp.ExportID)
	assert.NotEmpty(t, resp.Document)
	assert.Empty(t, reg.List(), "the session is discarded after the invocation")
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := analyze(context.Background(), reg, Request{
		Text:     "one two three four five six seven eight nine ten eleven twelve",
		Sections: []int{3},
	})
	assert.Error(t, err)

	_, err = analyze(context.Background(), reg, Request{Text: "hello", Provider: "nobody"})
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
}

func TestAnalyzeStopsBeforeDeadline(t *testing.T) {
	reg := newTestRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), deadlineMargin+100*time.Millisecond)
	defer cancel()

	resp, err := analyze(ctx, reg, Request{Text: "a few words", Provider: "slow"})
	require.NoError(t, err)
	assert.Equal(t, string(analyses.StatusStopped), resp.Status)
	assert.Zero(t, resp.UnitsProcessed)
	assert.NotEmpty(t, resp.Document)
}
