package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		wantInfo  bool
		wantVerb  bool
		wantDebug bool
	}{
		{0, false, false, false},
		{1, true, false, false},
		{2, true, true, false},
		{3, true, true, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		l := NewLogger(tt.verbosity)
		l.SetOutput(&buf)

		l.Info("info line")
		l.Verbose("verbose line")
		l.Debug("debug line")

		got := buf.String()
		if strings.Contains(got, "info line") != tt.wantInfo {
			t.Errorf("verbosity %d: info printed = %v, want %v",
				tt.verbosity, !tt.wantInfo, tt.wantInfo)
		}
		if strings.Contains(got, "verbose line") != tt.wantVerb {
			t.Errorf("verbosity %d: verbose printed = %v, want %v",
				tt.verbosity, !tt.wantVerb, tt.wantVerb)
		}
		if strings.Contains(got, "debug line") != tt.wantDebug {
			t.Errorf("verbosity %d: debug printed = %v, want %v",
				tt.verbosity, !tt.wantDebug, tt.wantDebug)
		}
	}
}

func TestLoggerErrorAlwaysPrints(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(0)
	l.SetOutput(&buf)
	l.Error("boom: %d", 42)

	if !strings.Contains(buf.String(), "[ERR] boom: 42") {
		t.Errorf("error output = %q", buf.String())
	}
}

func TestFormatAddr(t *testing.T) {
	if got := FormatAddr("icb.example.net", 7326); got != "icb.example.net:7326" {
		t.Errorf("FormatAddr = %q", got)
	}
	if got := FormatAddr("::1", 7326); got != "[::1]:7326" {
		t.Errorf("FormatAddr IPv6 = %q", got)
	}
}
