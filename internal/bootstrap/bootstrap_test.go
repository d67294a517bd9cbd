package bootstrap

import (
	"testing"
	"time"

	"github.com/kirillkom/campus-notice-assistant/internal/config"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/resilience"
)

func TestLLMClientConfigDisablesBackend(t *testing.T) {
	enabled := config.LLMConfig{Enabled: true, APIBase: "http://llm:8000", ChatModel: "judge"}
	if got := llmClientConfig(enabled); got.BaseURL != "http://llm:8000" || got.ChatModel != "judge" {
		t.Fatalf("unexpected client config: %+v", got)
	}

	disabled := enabled
	disabled.Enabled = false
	completer := openai.NewChatCompleter(openai.New(llmClientConfig(disabled)))
	if completer.Enabled() {
		t.Fatalf("expected disabled verifier backend")
	}
}

func TestEmptyLLMEnvDisablesClients(t *testing.T) {
	t.Setenv("LLM_ENABLED", "")
	t.Setenv("LLM_API_BASE", "")
	t.Setenv("VERIFIER_API_BASE", "")
	t.Setenv("VERIFIER_ENABLED", "")

	cfg := config.Load()
	client := openai.New(llmClientConfig(cfg.LLM))
	if openai.NewChatCompleter(client).Enabled() {
		t.Fatalf("expected generation completer disabled")
	}
	if openai.NewEmbedder(client).Enabled() {
		t.Fatalf("expected embedder disabled")
	}
	if openai.NewChatCompleter(openai.New(llmClientConfig(cfg.Verifier))).Enabled() {
		t.Fatalf("expected verifier completer disabled")
	}
}

func TestExecutorPolicyAppliesOverrides(t *testing.T) {
	cfg := config.Config{ResilienceBreakerEnabled: true}
	if got := executorPolicy(cfg, resilience.DependencyLLM); got.RetryMaxAttempts != 2 || !got.BreakerEnabled {
		t.Fatalf("expected llm profile attempts, got %+v", got)
	}
	cfg.ResilienceRetryMaxAttempts = 4
	cfg.ResilienceBreakerEnabled = false
	got := executorPolicy(cfg, resilience.DependencyEvents)
	if got.RetryMaxAttempts != 4 || got.BreakerEnabled || got.AttemptTimeout != time.Second {
		t.Fatalf("expected overrides on events profile, got %+v", got)
	}
}

func TestChatLimitsCopiesSettings(t *testing.T) {
	limits := chatLimits(config.ChatConfig{
		MaxCandidates:       10,
		MaxContextItems:     3,
		RetrievalTimeout:    time.Second,
		GenerationTimeout:   2 * time.Second,
		VerificationTimeout: 3 * time.Second,
		DisableFallback:     true,
	})
	if limits.MaxCandidates != 10 || limits.MaxContextItems != 3 || !limits.DisableFallback {
		t.Fatalf("unexpected limits: %+v", limits)
	}
	if limits.VerificationTimeout != 3*time.Second {
		t.Fatalf("unexpected verification timeout %s", limits.VerificationTimeout)
	}
}
