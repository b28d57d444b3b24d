package logging_test

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"pokequest/internal/logging"
)

func TestNew(t *testing.T) {
	logger, err := logging.New("debug", "console")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}

	logger, err = logging.New("warn", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info to be disabled at warn level")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := logging.New("loud", "json"); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := logging.New("info", "xml"); err == nil {
		t.Fatalf("expected format error")
	}
}
