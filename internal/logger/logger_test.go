package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":    LevelDebug,
		"WARN":     LevelWarn,
		"warning":  LevelWarn,
		"Error":    LevelError,
		"off":      LevelOff,
		"nonsense": LevelInfo,
		"":         LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	l.Debugf("debug-msg")
	l.Infof("info-msg")
	l.Warnf("warn-msg %d", 1)
	l.Errorf("error-msg")

	out := buf.String()
	if strings.Contains(out, "debug-msg") || strings.Contains(out, "info-msg") {
		t.Fatalf("messages below warn should be suppressed: %q", out)
	}
	if !strings.Contains(out, "2024-01-02T03:04:05Z [WARN] warn-msg 1") {
		t.Fatalf("warn line missing or misformatted: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error-msg") {
		t.Fatalf("error message missing: %q", out)
	}

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debugf("now-visible")
	if !strings.Contains(buf.String(), "[DEBUG] now-visible") {
		t.Fatalf("debug expected after SetLevel: %q", buf.String())
	}
}

func TestNilAndDiscardLoggersAreSilent(t *testing.T) {
	var l *Logger
	l.Errorf("no panic")
	Discard().Errorf("nothing")
}
