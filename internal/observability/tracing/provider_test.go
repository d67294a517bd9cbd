package tracing

import (
	"context"
	"testing"
)

func TestSetupDisabledReturnsNoop(t *testing.T) {
	for name, tc := range map[string]struct {
		enabled  bool
		endpoint string
	}{
		"disabled":       {enabled: false, endpoint: "http://localhost:4318/v1/traces"},
		"empty endpoint": {enabled: true, endpoint: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), "api", tc.enabled, tc.endpoint)
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown() error = %v", err)
			}
		})
	}
}

func TestSetupEnabledReturnsProviderShutdown(t *testing.T) {
	shutdown, err := Setup(context.Background(), "api", true, "http://127.0.0.1:4318/v1/traces")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Nothing was recorded, so flushing a canceled context has no export to fail.
	_ = shutdown(ctx)
}
