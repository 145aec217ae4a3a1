// SPDX-License-Identifier: MIT
package midi

import (
	"errors"
	"fmt"
)

// MaxVLQ is the largest value a four-byte variable-length quantity holds.
const MaxVLQ = 1<<28 - 1

var (
	ErrVLQOverflow  = errors.New("value exceeds 28-bit variable-length quantity")
	ErrTruncatedVLQ = errors.New("truncated variable-length quantity")
)

// AppendVLQ appends v to dst as a variable-length quantity: seven bits per
// byte, most significant group first, continuation bit on all but the last.
func AppendVLQ(dst []byte, v uint32) ([]byte, error) {
	if v > MaxVLQ {
		return dst, fmt.Errorf("%w: %d", ErrVLQOverflow, v)
	}

	var tmp [4]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
	}
	return append(dst, tmp[i:]...), nil
}

// ReadVLQ decodes the quantity at the start of b and returns it with the
// number of bytes consumed.
func ReadVLQ(b []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < len(b); i++ {
		if i == 4 {
			return 0, 0, fmt.Errorf("%w: longer than 4 bytes", ErrVLQOverflow)
		}
		v = v<<7 | uint32(b[i]&0x7F)
		if b[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncatedVLQ
}
