// SPDX-License-Identifier: MIT
package midi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendVLQ(t *testing.T) {
	tests := []struct {
		value uint32
		want  []byte
	}{
		{0x00, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x1E0, []byte{0x83, 0x60}},
		{0x2000, []byte{0xC0, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x100000, []byte{0xC0, 0x80, 0x00}},
		{0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{0x0FFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%#x", tt.value), func(t *testing.T) {
			got, err := AppendVLQ(nil, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			v, n, err := ReadVLQ(got)
			require.NoError(t, err)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, len(tt.want), n)
		})
	}
}

func TestAppendVLQKeepsPrefix(t *testing.T) {
	got, err := AppendVLQ([]byte{0xAA}, 0x80)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x81, 0x00}, got)
}

func TestAppendVLQOverflow(t *testing.T) {
	dst := []byte{0x01}
	got, err := AppendVLQ(dst, MaxVLQ+1)
	assert.ErrorIs(t, err, ErrVLQOverflow)
	assert.Equal(t, dst, got)
}

func TestReadVLQErrors(t *testing.T) {
	_, _, err := ReadVLQ(nil)
	assert.ErrorIs(t, err, ErrTruncatedVLQ)

	_, _, err = ReadVLQ([]byte{0x81, 0x80})
	assert.ErrorIs(t, err, ErrTruncatedVLQ)

	_, _, err = ReadVLQ([]byte{0x81, 0x80, 0x80, 0x80, 0x00})
	assert.ErrorIs(t, err, ErrVLQOverflow)
}

func TestReadVLQStopsAtLastByte(t *testing.T) {
	v, n, err := ReadVLQ([]byte{0x83, 0x60, 0x80, 0x3C})
	require.NoError(t, err)
	assert.Equal(t, uint32(480), v)
	assert.Equal(t, 2, n)
}

func TestVLQRoundTripRange(t *testing.T) {
	// Every byte-length boundary plus a stride through the full 28-bit range.
	values := []uint32{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFF, 0x200000, MaxVLQ - 1, MaxVLQ}
	for v := uint32(0); v < MaxVLQ; v += 104_729 {
		values = append(values, v)
	}

	var buf []byte
	var err error
	for _, v := range values {
		buf, err = AppendVLQ(buf[:0], v)
		require.NoError(t, err)

		got, n, err := ReadVLQ(buf)
		require.NoError(t, err)
		if got != v || n != len(buf) {
			t.Fatalf("round trip %#x -> % x -> %#x (%d bytes)", v, buf, got, n)
		}
	}
}

func BenchmarkAppendVLQ(b *testing.B) {
	buf := make([]byte, 0, 4)
	b.ReportAllocs()
	for b.Loop() {
		buf, _ = AppendVLQ(buf[:0], 0x0FFFFFFF)
	}
}
