// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	Note  string  `json:"note"`
	Hertz float64 `json:"hz"`
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func waitForClients(t *testing.T, wst *WebSocketTransport, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return wst.Clients() == n },
		2*time.Second, 5*time.Millisecond, "expected %d clients", n)
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport(nil)
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	a, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer a.Close()
	b, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer b.Close()
	waitForClients(t, wst, 2)

	require.NoError(t, wst.Send(message{Note: "A4", Hertz: 440}))

	for _, c := range []*websocket.Conn{a, b} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got message
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, message{Note: "A4", Hertz: 440}, got)
	}
}

func TestWebSocketDisconnect(t *testing.T) {
	wst := NewWebSocketTransport(nil)
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	c, _, err := dial(t, srv, "")
	require.NoError(t, err)
	waitForClients(t, wst, 1)

	c.Close()
	waitForClients(t, wst, 0)
}

func TestWebSocketOrigins(t *testing.T) {
	wst := NewWebSocketTransport([]string{"http://localhost:3000"})
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	c, _, err := dial(t, srv, "http://localhost:3000")
	require.NoError(t, err)
	c.Close()

	_, resp, err := dial(t, srv, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketClose(t *testing.T) {
	wst := NewWebSocketTransport([]string{"*"})
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	c, _, err := dial(t, srv, "http://anywhere.example")
	require.NoError(t, err)
	defer c.Close()
	waitForClients(t, wst, 1)

	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close(), "Close must be idempotent")
	assert.Equal(t, 0, wst.Clients())
	assert.ErrorIs(t, wst.Send("late"), ErrClosed)

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = c.ReadMessage()
	assert.Error(t, err, "client connection should be closed")

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestWebSocketSendWithoutClients(t *testing.T) {
	wst := NewWebSocketTransport(nil)
	defer wst.Close()

	// More than the queue holds; excess is dropped, never blocks.
	for i := range broadcastBuffer * 2 {
		require.NoError(t, wst.Send(i))
	}
}
