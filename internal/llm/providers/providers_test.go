package providers

import (
	"context"
	"io"
	"testing"
	"time"

	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/telemetry"
)

func TestFromConfigRegistersConfiguredProviders(t *testing.T) {
	telemetry.Configure(io.Discard, "info")
	t.Cleanup(func() { telemetry.Configure(nil, "info") })

	reg, err := FromConfig(context.Background(), config.LLMConfig{
		Provider:       "deepseek",
		Timeout:        time.Second,
		EnableEcho:     true,
		OpenAIKey:      "sk-test",
		OpenAIModel:    "gpt-4o-mini",
		AnthropicKey:   "ak-test",
		AnthropicModel: "claude-3-5-sonnet-latest",
		DeepSeekKey:    "ds-test",
		DeepSeekModel:  "deepseek-chat",
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	got := reg.Names()
	want := []string{"anthropic", "deepseek", "echo", "openai"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
}

func TestFromConfigWithoutCredentialsIsEmpty(t *testing.T) {
	telemetry.Configure(io.Discard, "info")
	t.Cleanup(func() { telemetry.Configure(nil, "info") })

	reg, err := FromConfig(context.Background(), config.LLMConfig{Provider: "openai"})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if len(reg.Names()) != 0 {
		t.Fatalf("expected no providers, got %v", reg.Names())
	}
}

func TestFromConfigRejectsMissingModel(t *testing.T) {
	telemetry.Configure(io.Discard, "info")
	t.Cleanup(func() { telemetry.Configure(nil, "info") })

	if _, err := FromConfig(context.Background(), config.LLMConfig{OpenAIKey: "sk-test"}); err == nil {
		t.Fatalf("expected error for openai without a model")
	}
}
