// Package providers builds the provider registry from configuration.
package providers

import (
	"context"
	"fmt"

	"analysis-backend/internal/llm"
	"analysis-backend/internal/llm/anthropic"
	"analysis-backend/internal/llm/gemini"
	"analysis-backend/internal/llm/openai"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/telemetry"
)

// FromConfig registers every provider that has credentials. The echo provider
// is only available when enabled for development.
func FromConfig(ctx context.Context, cfg config.LLMConfig) (*llm.Registry, error) {
	reg := llm.NewRegistry()

	if cfg.OpenAIKey != "" {
		client, err := openai.NewClient(openai.Options{
			Name:    "openai",
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		reg.Register("openai", client)
	}
	if cfg.DeepSeekKey != "" {
		client, err := openai.NewClient(openai.Options{
			Name:    "deepseek",
			APIKey:  cfg.DeepSeekKey,
			Model:   cfg.DeepSeekModel,
			BaseURL: openai.DeepSeekBaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("deepseek provider: %w", err)
		}
		reg.Register("deepseek", client)
	}
	if cfg.AnthropicKey != "" {
		client, err := anthropic.NewClient(anthropic.Options{
			APIKey:  cfg.AnthropicKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		reg.Register("anthropic", client)
	}
	if cfg.GeminiKey != "" {
		client, err := gemini.NewClient(ctx, gemini.Options{
			APIKey: cfg.GeminiKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		reg.Register("gemini", client)
	}
	if cfg.EnableEcho {
		reg.Register("echo", llm.EchoClient{})
	}

	names := reg.Names()
	fields := map[string]any{
		"providers": names,
		"default":   cfg.Provider,
	}
	switch {
	case len(names) == 0:
		telemetry.Warn("llm.no_providers", fields)
	case !reg.Has(cfg.Provider):
		telemetry.Warn("llm.default_provider_unavailable", fields)
	default:
		telemetry.Info("llm.providers", fields)
	}
	return reg, nil
}
