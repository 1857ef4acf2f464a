package push

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func dialGateway(t *testing.T, g *Gateway) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(g)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	return conn, srv
}

func TestGateway_DisconnectStopsWritePump(t *testing.T) {
	g := NewGateway(nil, zap.NewNop())
	conn, srv := dialGateway(t, g)
	defer srv.Close()

	assert.Eventually(t, func() bool {
		g.mu.RLock()
		defer g.mu.RUnlock()
		return len(g.clients) == 1
	}, time.Second, 10*time.Millisecond)

	g.mu.RLock()
	var c *client
	for registered := range g.clients {
		c = registered
	}
	g.mu.RUnlock()

	conn.Close()

	// Cleanup must close the send channel so writePump exits instead of
	// blocking on it forever, one goroutine per disconnected client.
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	g.mu.RLock()
	defer g.mu.RUnlock()
	assert.Empty(t, g.clients)
}
