package hub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c *Client) currentState() clientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func connectClient(t *testing.T, h *Hub) (*websocket.Conn, *Client) {
	t.Helper()
	srv := httptest.NewServer(h.ServeWS(NewUpgrader(nil)))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	observers := h.snapshot()
	require.Len(t, observers, 1)
	c, ok := observers[0].(*Client)
	require.True(t, ok)
	return conn, c
}

func TestClient_PeerDisconnectEndsClosed(t *testing.T) {
	h := New(nil)
	conn, c := connectClient(t, h)
	assert.Equal(t, stateOpen, c.currentState())
	assert.True(t, c.Ready())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return c.currentState() == stateClosed }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, c.Ready())
	assert.ErrorIs(t, c.Send([]byte(`{}`)), ErrNotReady)
	assert.Zero(t, h.Count())
}

func TestClient_CloseGoesThroughClosingToClosed(t *testing.T) {
	h := New(nil)
	conn, c := connectClient(t, h)

	c.Close()
	state := c.currentState()
	assert.True(t, state == stateClosing || state == stateClosed, "state after Close: %d", state)
	assert.ErrorIs(t, c.Send([]byte(`{}`)), ErrNotReady)

	// The peer sees the close frame written on the way out.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected read error: %v", err)

	require.Eventually(t, func() bool { return c.currentState() == stateClosed }, 2*time.Second, 10*time.Millisecond)
	c.Close()
	assert.Equal(t, stateClosed, c.currentState())
}
