package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Level:     slog.LevelDebug,
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestWithComponentReplacesComponent(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Logger) *Logger
		want  string
		attrs []string
	}{
		{"single", func(l *Logger) *Logger { return l.WithComponent(ComponentStore) }, "component=store", nil},
		{"chained", func(l *Logger) *Logger { return l.WithComponent(ComponentApp).WithComponent(ComponentWorker) }, "component=worker", nil},
		{"attrs survive", func(l *Logger) *Logger {
			return l.WithComponent(ComponentApp).With("user_id", "u1").WithComponent(ComponentCache)
		}, "component=cache", []string{"user_id=u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.build(newBufferLogger(&buf)).Info("hello")
			out := buf.String()
			if n := strings.Count(out, "component="); n != 1 {
				t.Fatalf("component logged %d times: %s", n, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q missing %q", out, tt.want)
			}
			for _, a := range tt.attrs {
				if !strings.Contains(out, a) {
					t.Errorf("output %q missing %q", out, a)
				}
			}
		})
	}
}

func TestLogMutationLogsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf).WithComponent(ComponentStore))
	sl.LogMutation(context.Background(), "u1", "accounts", "created", "a1")

	out := buf.String()
	if n := strings.Count(out, "component="); n != 1 {
		t.Fatalf("component logged %d times: %s", n, out)
	}
	for _, want := range []string{"user_id=u1", "collection=accounts", "operation=created", "entity_id=a1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
