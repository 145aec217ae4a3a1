// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	origOut, origLevel := Writer(), GetLevel()
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(origOut)
		SetLevel(origLevel)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelWarn)

	Debugf("Tuner: %s", "hidden")
	Info("hidden")
	Warnf("Tuner: dropped %d frames", 3)
	Error("Tuner: transport failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below WARN were written:\n%s", out)
	}
	if !strings.Contains(out, "[WARN]  Tuner: dropped 3 frames") {
		t.Errorf("missing warning line:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] Tuner: transport failed") {
		t.Errorf("missing error line:\n%s", out)
	}
}

func TestSetLevel(t *testing.T) {
	captureOutput(t)
	for _, l := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		SetLevel(l)
		if GetLevel() != l {
			t.Errorf("GetLevel() = %s after SetLevel(%s)", GetLevel(), l)
		}
	}
	if LogLevel(42).String() != "UNKNOWN" {
		t.Errorf("unexpected name for unknown level: %s", LogLevel(42))
	}
}
