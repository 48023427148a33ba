package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"analysis-backend/internal/analyses"
	"analysis-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{Name: "deepseek", APIKey: "key", Model: "deepseek-chat", BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestRunUnitSendsPromptAndReturnsContent(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  insight  "}}],"usage":{"total_tokens":12}}`))
	})

	out, err := client.RunUnit(context.Background(), llm.UnitInput{
		AnalysisType: analyses.TypeComprehensiveCognitive,
		Phase:        analyses.PhasePushback,
		PhaseIndex:   1,
		PhaseCount:   4,
		ChunkIndex:   0,
		ChunkCount:   2,
		Text:         "Some writing.",
		PriorOutput:  "Earlier claims.",
	})
	if err != nil {
		t.Fatalf("RunUnit: %v", err)
	}
	if out != "insight" {
		t.Fatalf("unexpected output %q", out)
	}
	if got.Model != "deepseek-chat" || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Temperature == nil {
		t.Fatalf("expected temperature for non gpt-5 model")
	}
	if !strings.Contains(got.Messages[0].Content, "phase 2 of 4") {
		t.Fatalf("system prompt missing phase framing: %q", got.Messages[0].Content)
	}
	if !strings.Contains(got.Messages[1].Content, "Earlier claims.") {
		t.Fatalf("user prompt missing prior output: %q", got.Messages[1].Content)
	}
}

func TestRunUnitStatusErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	_, err := client.RunUnit(context.Background(), llm.UnitInput{Phase: analyses.PhaseAnalysis, Text: "x"})
	if !errors.Is(err, llm.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 status error, got %v", err)
	}
	if statusErr.Message != "slow down" {
		t.Fatalf("unexpected message %q", statusErr.Message)
	}
}

func TestRunUnitEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := client.RunUnit(context.Background(), llm.UnitInput{Phase: analyses.PhaseAnalysis, Text: "x"})
	if !errors.Is(err, llm.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected model error")
	}
	if _, err := NewClient(Options{Model: "gpt-4o"}); err == nil {
		t.Fatalf("expected api key error")
	}
}
