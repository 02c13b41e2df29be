package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentWorker,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("starting", "queue", "expense_events")
	logger.Error("broker unreachable", FieldError, "dial refused")

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), out)
	}
	for _, line := range lines {
		if !strings.Contains(line, FieldComponent+"="+ComponentWorker) {
			t.Fatalf("line missing component tag: %s", line)
		}
	}
	if !strings.Contains(lines[0], "queue=expense_events") {
		t.Fatalf("caller attrs lost: %s", lines[0])
	}
}

func TestNewDefaultsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil)})
	logger.Warn("no component configured")

	if !strings.Contains(buf.String(), FieldComponent+"=app") {
		t.Fatalf("missing fallback component: %s", buf.String())
	}
}
