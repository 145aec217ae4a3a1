// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"math"
	"testing"
)

const (
	testSize       = 2048
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestMockTransport(t *testing.T) {
	tests := []struct {
		name     string
		payloads []any
	}{
		{"Nothing", nil},
		{"Single Value", []any{0.5}},
		{"Mixed", []any{"a", 1, map[string]any{"k": "v"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := &MockTransport{}
			for _, p := range tt.payloads {
				if err := mt.Send(p); err != nil {
					t.Errorf("MockTransport.Send() error = %v", err)
				}
			}
			if got := len(mt.Sent()); got != len(tt.payloads) {
				t.Errorf("MockTransport.Sent() length = %d, want %d", got, len(tt.payloads))
			}
		})
	}

	mt := &MockTransport{Err: errors.New("boom")}
	if err := mt.Send(1); err == nil {
		t.Error("expected configured error from Send")
	}
	if len(mt.Sent()) != 0 {
		t.Error("failed Send should not record payload")
	}
	if err := mt.Close(); err != nil || !mt.Closed() {
		t.Errorf("Close() = %v, Closed() = %v", err, mt.Closed())
	}
}

func TestGenerateComplexWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
	}{
		{"Standard", 2048, 44100},
		{"Small", 16, 8000},
		{"Large", 8192, 96000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateComplexWave(tt.size, tt.sampleRate, testFrequency)

			if len(result) != tt.size {
				t.Errorf("GenerateComplexWave() buffer size = %d, want %d", len(result), tt.size)
			}

			hasNonZero := false
			for _, v := range result {
				if v > 1 || v < -1 {
					t.Fatalf("GenerateComplexWave() sample %f outside [-1, 1]", v)
				}
				if v != 0 {
					hasNonZero = true
				}
			}
			if !hasNonZero {
				t.Errorf("GenerateComplexWave() produced all zeros")
			}
		})
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 44100, 440.0},
		{"Middle C", 44100, 261.63},
		{"High Sample Rate", 192000, 440.0},
		{"Low Sample Rate", 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(testSize, tt.sampleRate, tt.frequency, 0.8)

			if len(result) != testSize {
				t.Errorf("GenerateSineWave() buffer size = %d, want %d", len(result), testSize)
			}

			// Two zero crossings per cycle, 20% margin for phase alignment.
			samplesPerCycle := tt.sampleRate / tt.frequency
			crossCount := 0
			for i := 1; i < testSize; i++ {
				if (result[i-1] < 0 && result[i] >= 0) || (result[i-1] >= 0 && result[i] < 0) {
					crossCount++
				}
			}
			expected := float64(testSize) / (samplesPerCycle / 2)
			if math.Abs(float64(crossCount)-expected) > 0.2*expected {
				t.Errorf("GenerateSineWave() zero crossings = %d, expected approximately %.1f", crossCount, expected)
			}
		})
	}
}

func TestGenerateSilence(t *testing.T) {
	for _, s := range GenerateSilence(testSize, 0) {
		if s != 0 {
			t.Fatalf("zero amplitude produced sample %f", s)
		}
	}

	for _, s := range GenerateSilence(testSize, 0.005) {
		if math.Abs(float64(s)) > 0.005 {
			t.Fatalf("sample %f exceeds amplitude", s)
		}
	}
}

func BenchmarkGenerateSineWave(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		GenerateSineWave(testSize, testSampleRate, testFrequency, 0.8)
	}
}
