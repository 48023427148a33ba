package analyses

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleOrdersPhasesAndChunks(t *testing.T) {
	chunks := []ChunkRef{{ID: "b", Order: 1}, {ID: "a", Order: 0}}
	res := NewResult(chunks)
	phases := []Phase{PhaseInitial, PhasePushback}

	// Insert out of display order.
	require.NoError(t, res.Append(PhasePushback, ChunkRef{ID: "b", Order: 1}, "pushback b"))
	require.NoError(t, res.Append(PhaseInitial, ChunkRef{ID: "b", Order: 1}, "initial b"))
	require.NoError(t, res.Append(PhaseInitial, ChunkRef{ID: "a", Order: 0}, "initial a\n\n"))
	require.NoError(t, res.Append(PhasePushback, ChunkRef{ID: "a", Order: 0}, "pushback a"))

	doc := Assemble(res, phases)
	order := []string{"initial a", "initial b", "pushback a", "pushback b"}
	last := -1
	for _, s := range order {
		idx := strings.Index(doc, s)
		require.GreaterOrEqual(t, idx, 0, "missing %q", s)
		assert.Greater(t, idx, last, "%q out of order", s)
		last = idx
	}
	assert.Contains(t, doc, "## Phase 1 of 2: Initial assessment")
	assert.Contains(t, doc, "### Section 2 of 2")
	assert.NotContains(t, doc, "MISSING")
	assert.NotContains(t, doc, "Incomplete export")
}

func TestAssembleIsDeterministic(t *testing.T) {
	res := NewResult([]ChunkRef{{ID: "x", Order: 0}, {ID: "y", Order: 1}})
	require.NoError(t, res.Append(PhaseAnalysis, ChunkRef{ID: "x", Order: 0}, "one"))
	phases := []Phase{PhaseAnalysis}

	first := Assemble(res, phases)
	second := Assemble(res.Clone(), phases)
	assert.Equal(t, first, second)
}

func TestAssemblePartialStopExample(t *testing.T) {
	clock := newFakeClock()
	job := newStartedJob(t, TypeComprehensiveCognitive, chunkInputs(3), clock)
	for i := 0; i < 5; i++ {
		require.NoError(t, job.ReportUnitComplete(fmt.Sprintf("unit output %d", i)))
	}
	require.NoError(t, job.Stop())

	doc := Assemble(job.Result(), job.Phases())
	for i := 0; i < 5; i++ {
		assert.Contains(t, doc, fmt.Sprintf("unit output %d", i))
	}
	assert.Equal(t, 7, strings.Count(doc, "[MISSING:"))
	assert.Contains(t, doc, "Incomplete export: 7 of 12 units missing.")
}

func TestAssembleUnchunkedHasNoSections(t *testing.T) {
	res := NewResult([]ChunkRef{{}})
	require.NoError(t, res.Append(PhaseAnalysis, ChunkRef{}, "whole text analysis"))
	doc := Assemble(res, []Phase{PhaseAnalysis})
	assert.Equal(t, "## Analysis\n\nwhole text analysis\n\n", doc)
}

func TestAssembleNilResult(t *testing.T) {
	doc := Assemble(nil, []Phase{PhaseAnalysis})
	assert.Contains(t, doc, "[MISSING: Analysis not completed]")
	assert.Contains(t, doc, "1 of 1 units missing")
}

func TestResultRejectsWritesWhenSealed(t *testing.T) {
	res := NewResult(nil)
	require.NoError(t, res.Append(PhaseAnalysis, ChunkRef{}, "a"))
	if err := res.Append(PhaseAnalysis, ChunkRef{}, "dup"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	res.Seal()
	if err := res.Append(PhaseInitial, ChunkRef{}, "b"); !errors.Is(err, ErrResultSealed) {
		t.Fatalf("expected ErrResultSealed, got %v", err)
	}
	entries := res.Entries()
	if len(entries) != 1 || entries[0].Output != "a" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("## Analysis\n\nsome *text*\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Analysis</h2>")
	assert.Contains(t, html, "<em>text</em>")
}
