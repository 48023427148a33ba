package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/llm"
)

func TestRunUnit(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "secret" || r.Header.Get("Anthropic-Version") != apiVersion {
			t.Errorf("missing headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Part one. "},{"type":"text","text":"Part two."}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "secret", Model: "claude-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.RunUnit(context.Background(), llm.UnitInput{
		AnalysisType: analyses.TypePsychological,
		Phase:        analyses.PhaseAnalysis,
		PhaseCount:   1,
		ChunkCount:   1,
		Text:         "I wrote this.",
	})
	if err != nil {
		t.Fatalf("RunUnit: %v", err)
	}
	if out != "Part one. Part two." {
		t.Fatalf("unexpected output %q", out)
	}
	if got.System == "" || got.MaxTokens != maxTokens || len(got.Messages) != 1 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestRunUnitOverloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "secret", Model: "claude-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.RunUnit(context.Background(), llm.UnitInput{Phase: analyses.PhaseAnalysis, Text: "x"})
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 529 {
		t.Fatalf("expected 529 status error, got %v", err)
	}
	if !errors.Is(err, llm.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}
