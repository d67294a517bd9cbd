package resilience

import (
	"testing"
	"time"
)

func TestConfigForProfiles(t *testing.T) {
	llm := ConfigFor(DependencyLLM)
	if llm.RetryMaxAttempts != 2 || llm.BreakerMinRequests != 5 || llm.AttemptTimeout != 0 {
		t.Fatalf("unexpected llm profile: %+v", llm)
	}
	if got := ConfigFor(DependencyVectorIndex).AttemptTimeout; got != 2*time.Second {
		t.Fatalf("expected vector index attempt timeout 2s, got %s", got)
	}
	events := ConfigFor(DependencyEvents)
	if events.AttemptTimeout != time.Second || events.RetryMaxBackoff != 200*time.Millisecond {
		t.Fatalf("unexpected events profile: %+v", events)
	}
	if ConfigFor("unknown") != DefaultConfig() {
		t.Fatalf("expected unknown dependency to use defaults")
	}
}

func TestWithOverrides(t *testing.T) {
	cfg := ConfigFor(DependencyLLM).WithOverrides(5, false)
	if cfg.RetryMaxAttempts != 5 || cfg.BreakerEnabled {
		t.Fatalf("expected overrides applied, got %+v", cfg)
	}
	cfg = ConfigFor(DependencyLLM).WithOverrides(0, true)
	if cfg.RetryMaxAttempts != 2 || !cfg.BreakerEnabled {
		t.Fatalf("expected profile attempts kept, got %+v", cfg)
	}
}

func TestNormalizeRepairsInvalidValues(t *testing.T) {
	cfg := Config{
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     0.5,
		AttemptTimeout:      -time.Second,
		BreakerFailureRatio: 2,
	}.normalize()

	if cfg.RetryMaxAttempts != 3 || cfg.RetryMultiplier != 2.0 {
		t.Fatalf("expected retry defaults, got %+v", cfg)
	}
	if cfg.RetryMaxBackoff != time.Second {
		t.Fatalf("expected max backoff raised to initial backoff, got %s", cfg.RetryMaxBackoff)
	}
	if cfg.AttemptTimeout != 0 || cfg.BreakerFailureRatio != 0.5 {
		t.Fatalf("unexpected normalized breaker settings: %+v", cfg)
	}
}
