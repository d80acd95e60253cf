// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectrum/internal/log"
)

func TestWebSocketTransportBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return wst.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	heights := []float64{2, 75.5, 150}
	require.NoError(t, wst.Render(heights))
	heights[0] = 99 // the transport keeps its own copy

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "bars", frame.Type)
	assert.Equal(t, uint64(1), frame.Seq)
	assert.Equal(t, []float64{2, 75.5, 150}, frame.Bars)
	assert.NotZero(t, frame.Timestamp)
}

func TestWebSocketTransportClientDisconnect(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return wst.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return wst.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWebSocketTransportClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, wst.Render([]float64{1}), "rendering without clients is fine")
	require.NoError(t, wst.Close())
	assert.NoError(t, wst.Close(), "idempotent")
	assert.Error(t, wst.Render([]float64{1}))
}

func TestWebSocketTransportDropsWhenQueueFull(t *testing.T) {
	// No broadcaster draining the queue.
	wst := &WebSocketTransport{
		broadcast: make(chan Frame, 2),
		done:      make(chan struct{}),
	}
	for range 5 {
		require.NoError(t, wst.Render([]float64{1, 2}))
	}
	assert.Equal(t, uint64(3), wst.Dropped())
	assert.Len(t, wst.broadcast, 2)
}

func TestWebSocketTransportBadAddress(t *testing.T) {
	_, err := NewWebSocketTransport("256.0.0.1:-1")
	assert.Error(t, err)
}

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	prev := log.GetLevel()
	log.SetLevel(log.LevelDebug)
	defer func() {
		log.SetLevel(prev)
		log.SetOutput(os.Stderr)
	}()

	lt := NewLoggingTransport(2)
	for range 5 {
		require.NoError(t, lt.Render([]float64{2, 9, 4}))
	}
	require.NoError(t, lt.Close())

	assert.Equal(t, uint64(5), lt.Frames())
	out := buf.String()
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("msg=frame")), out)
	assert.Contains(t, out, "peak=9")
	assert.Contains(t, out, "bar=1")
	assert.Contains(t, out, "component=transport.log")
}
