package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("registered", "user_id", "u1", "parentEmail", "mum@example.com")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["user_id"] != "u1" {
		t.Fatalf("expected user_id kept, got %v", fields["user_id"])
	}
	if fields["parentEmail"] != "[REDACTED]" {
		t.Fatalf("expected email redacted, got %v", fields["parentEmail"])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("new %s: %v", mode, err)
		}
		l.Debug("hello")
	}
}
