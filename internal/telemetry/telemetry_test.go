package telemetry_test

import (
	"context"
	"testing"

	"pokequest/internal/telemetry"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "pokequest", "  ")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "pokequest-test", "http://127.0.0.1:4318")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
