package wsconn

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/feejar-monitor/internal/logger"
)

type update struct {
	Block      uint64 `json:"block"`
	Profitable bool   `json:"profitable"`
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PingInterval = 0
	hub := NewHub(cfg, logger.NewNop())
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	hub, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dial(t, ctx, url)
	b := dial(t, ctx, url)
	waitForClients(t, hub, 2)

	require.NoError(t, hub.Publish(ctx, update{Block: 42, Profitable: true}))

	for _, conn := range []*websocket.Conn{a, b} {
		var got update
		require.NoError(t, wsjson.Read(ctx, conn, &got))
		assert.Equal(t, update{Block: 42, Profitable: true}, got)
	}
}

func TestHub_ReplaysLastMessageOnConnect(t *testing.T) {
	hub, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, update{Block: 7}))

	conn := dial(t, ctx, url)

	var got update
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.EqualValues(t, 7, got.Block)
}

func TestHub_ClientDisconnectIsRemoved(t *testing.T) {
	hub, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	conn.Close(websocket.StatusNormalClosure, "bye")
	waitForClients(t, hub, 0)
}

func TestHub_CloseRejectsNewClients(t *testing.T) {
	hub, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub.Close()

	conn := dial(t, ctx, url)
	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
