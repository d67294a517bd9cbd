package resilience

import "time"

// Config tunes retries and circuit breaking for outbound calls. A zero
// AttemptTimeout leaves each attempt bounded only by the caller's context.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	AttemptTimeout      time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// Dependency names an outbound system with its own retry profile.
type Dependency string

const (
	DependencyLLM         Dependency = "llm"
	DependencyVectorIndex Dependency = "vector_index"
	DependencyEvents      Dependency = "events"
)

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// ConfigFor returns the profile for dep. Chat requests wait on the LLM and the
// vector index inline, so those profiles back off briefly and trip early;
// event publishing sits behind an operator request and gets per-attempt caps.
func ConfigFor(dep Dependency) Config {
	cfg := DefaultConfig()
	switch dep {
	case DependencyLLM:
		cfg.RetryMaxAttempts = 2
		cfg.RetryInitialBackoff = 250 * time.Millisecond
		cfg.RetryMaxBackoff = time.Second
		cfg.BreakerMinRequests = 5
		cfg.BreakerOpenTimeout = time.Minute
	case DependencyVectorIndex:
		cfg.AttemptTimeout = 2 * time.Second
	case DependencyEvents:
		cfg.RetryInitialBackoff = 50 * time.Millisecond
		cfg.RetryMaxBackoff = 200 * time.Millisecond
		cfg.AttemptTimeout = time.Second
		cfg.BreakerOpenTimeout = 15 * time.Second
	}
	return cfg
}

// WithOverrides applies operator settings on top of a profile. A
// non-positive maxAttempts keeps the profile's value.
func (c Config) WithOverrides(maxAttempts int, breakerEnabled bool) Config {
	if maxAttempts > 0 {
		c.RetryMaxAttempts = maxAttempts
	}
	c.BreakerEnabled = breakerEnabled
	return c
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	out.RetryMaxBackoff = max(out.RetryMaxBackoff, out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	out.AttemptTimeout = max(out.AttemptTimeout, 0)

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}
