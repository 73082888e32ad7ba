package utils

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		l, err := NewLogger(level)
		if err != nil {
			t.Fatalf("level %q: %s", level, err)
		}
		l.Debugf("level %q ok", level)
	}

	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestGetLogger(t *testing.T) {
	if GetLogger() == nil {
		t.Fatal("nil default logger")
	}
	l := zap.NewNop().Sugar()
	SetLogger(l)
	if GetLogger() != l {
		t.Fatal("SetLogger not applied")
	}
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(context.Background())
	cancel()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Fatal("expected cancelled context")
	}
}
