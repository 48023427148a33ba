package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"analysis-backend/internal/analyses"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(" Gemini ", EchoClient{})
	r.Register("openai", EchoClient{})
	r.Register("", EchoClient{})

	if got := r.Names(); len(got) != 2 || got[0] != "gemini" || got[1] != "openai" {
		t.Fatalf("unexpected names %v", got)
	}
	if _, err := r.Get("GEMINI"); err != nil {
		t.Fatalf("lookup should be case-insensitive: %v", err)
	}
	if _, err := r.Get("mistral"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if r.Has("anthropic") {
		t.Fatalf("anthropic was never registered")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("openai", nil) != nil {
		t.Fatalf("nil stays nil")
	}
	if err := Wrap("openai", context.Canceled); !errors.Is(err, context.Canceled) || errors.Is(err, ErrProvider) {
		t.Fatalf("cancellation must not be tagged as provider failure: %v", err)
	}
	base := errors.New("boom")
	err := Wrap("openai", base)
	if !errors.Is(err, ErrProvider) || !errors.Is(err, base) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	status := &StatusError{Provider: "x", StatusCode: 500}
	if Wrap("x", status) != error(status) {
		t.Fatalf("status errors pass through unchanged")
	}
}

func TestBuildPromptComprehensivePhase(t *testing.T) {
	system, user := BuildPrompt(UnitInput{
		AnalysisType: analyses.TypeComprehensivePsychopathological,
		Phase:        analyses.PhaseCalibration,
		PhaseIndex:   2,
		PhaseCount:   4,
		ChunkIndex:   1,
		ChunkCount:   3,
		Text:         "chunk body",
		PriorOutput:  "pushback notes",
	})
	if !strings.Contains(system, "psychopathology") {
		t.Fatalf("expected psychopathological base prompt: %q", system)
	}
	if !strings.Contains(system, "phase 3 of 4: Calibration") {
		t.Fatalf("expected phase framing: %q", system)
	}
	if strings.Contains(system, "{{") {
		t.Fatalf("unreplaced placeholder: %q", system)
	}
	if !strings.Contains(user, "section 2 of 3") || !strings.Contains(user, "pushback notes") {
		t.Fatalf("unexpected user prompt: %q", user)
	}
}

func TestBuildPromptWholeText(t *testing.T) {
	_, user := BuildPrompt(UnitInput{
		AnalysisType: analyses.TypeCognitive,
		Phase:        analyses.PhaseAnalysis,
		PhaseCount:   1,
		ChunkCount:   1,
		Text:         "whole text",
	})
	if strings.Contains(user, "section") || strings.Contains(user, "Previous phase") {
		t.Fatalf("whole-text prompt should not mention sections: %q", user)
	}
}

func TestEchoClientDeterministic(t *testing.T) {
	in := UnitInput{AnalysisType: analyses.TypeCognitive, Phase: analyses.PhaseAnalysis, ChunkCount: 1, Text: "one two three"}
	a, err := EchoClient{}.RunUnit(context.Background(), in)
	if err != nil {
		t.Fatalf("RunUnit: %v", err)
	}
	b, _ := EchoClient{}.RunUnit(context.Background(), in)
	if a != b || !strings.Contains(a, "3 words") {
		t.Fatalf("unexpected echo output %q / %q", a, b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (EchoClient{}).RunUnit(ctx, in); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
