// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"strings"
	"testing"

	"pocket/internal/log"
)

type stringer string

func (s stringer) String() string { return "reading " + string(s) }

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(orig) })

	lt := NewLoggingTransport()
	for _, msg := range []stringer{"A4", "A4", "A4", "B4", "A4"} {
		if err := lt.Send(msg); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}

	out := buf.String()
	if n := strings.Count(out, "reading A4"); n != 2 {
		t.Errorf("logged A4 %d times, want 2 (repeats collapsed):\n%s", n, out)
	}
	if !strings.Contains(out, "reading B4") {
		t.Errorf("missing B4 line:\n%s", out)
	}

	if err := lt.Close(); err != nil {
		t.Fatal(err)
	}
	if err := lt.Send(stringer("C5")); err != ErrClosed {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
}
