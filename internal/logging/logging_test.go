package logging

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedLogger(buf *bytes.Buffer, level Level) Logger {
	return &textLogger{
		out:   buf,
		level: level,
		mu:    &sync.Mutex{},
		nowFn: func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		},
	}
}

func TestLogfmtLine(t *testing.T) {
	var buf bytes.Buffer
	log := fixedLogger(&buf, Info)
	log.Info("fetch done", F("channel", "c1"), F("count", 3), Err(errors.New("partial read")))
	got := buf.String()
	want := `ts=2026-03-01T12:00:00Z level=info msg="fetch done" channel=c1 count=3 err="partial read"` + "\n"
	if got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := fixedLogger(&buf, Warn)
	log.Debug("dropped")
	log.Info("dropped")
	log.Error("kept")
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Fatalf("lines = %d, want 1", n)
	}
	if !log.Enabled(Error) || log.Enabled(Info) {
		t.Fatalf("Enabled disagrees with the configured level")
	}
}

func TestWithBindsFields(t *testing.T) {
	var buf bytes.Buffer
	log := fixedLogger(&buf, Info).With(F("account", "main"))
	log.Info("tick")
	if !strings.Contains(buf.String(), " account=main") {
		t.Fatalf("bound field missing: %q", buf.String())
	}
	// The parent logger is unaffected.
	buf.Reset()
	fixedLogger(&buf, Info).Info("tick")
	if strings.Contains(buf.String(), "account=") {
		t.Fatalf("parent logger picked up bound field")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want Level
	}{
		{"debug", Debug},
		{" WARN ", Warn},
		{"warning", Warn},
		{"error", Error},
		{"", Info},
		{"verbose", Info},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.raw); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
