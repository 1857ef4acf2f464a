package push

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"stock-backtester/internal/infrastructure"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Gateway relays completed-run events from JetStream to websocket clients.
// Clients subscribe to subjects under "backtest.completed."; each subject is
// backed by at most one NATS subscription shared by its subscribers.
type Gateway struct {
	logger        *zap.Logger
	js            nats.JetStreamContext
	clients       map[*client]bool
	subscriptions map[string]map[*client]bool
	natsSubs      map[string]*nats.Subscription
	mu            sync.RWMutex
}

func NewGateway(js nats.JetStreamContext, logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:        logger,
		js:            js,
		clients:       make(map[*client]bool),
		subscriptions: make(map[string]map[*client]bool),
		natsSubs:      make(map[string]*nats.Subscription),
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[c] = true
	g.mu.Unlock()
	infrastructure.WSConnections.Inc()

	go g.writePump(c)
	g.readPump(c)
}

func (g *Gateway) readPump(c *client) {
	defer func() {
		g.mu.Lock()
		delete(g.clients, c)
		for topic, clients := range g.subscriptions {
			delete(clients, c)
			g.dropTopicIfIdle(topic)
		}
		// The NATS relay only sends while holding the read lock, so once the
		// client is out of the maps nothing can send; closing here lets
		// writePump drain and exit instead of blocking forever.
		close(c.send)
		g.mu.Unlock()
		infrastructure.WSConnections.Dec()
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req struct {
			Action string `json:"action"` // "subscribe", "unsubscribe"
			Topic  string `json:"topic"`
		}
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}
		if !strings.HasPrefix(req.Topic, "backtest.completed.") {
			g.logger.Warn("rejected topic outside backtest namespace", zap.String("topic", req.Topic))
			continue
		}

		g.mu.Lock()
		switch req.Action {
		case "subscribe":
			if g.subscriptions[req.Topic] == nil {
				g.subscriptions[req.Topic] = make(map[*client]bool)
				if err := g.subscribeToNATS(req.Topic); err != nil {
					g.logger.Error("failed to subscribe to NATS", zap.String("topic", req.Topic), zap.Error(err))
				}
			}
			g.subscriptions[req.Topic][c] = true
		case "unsubscribe":
			if clients, ok := g.subscriptions[req.Topic]; ok {
				delete(clients, c)
				g.dropTopicIfIdle(req.Topic)
			}
		}
		g.mu.Unlock()
	}
}

// dropTopicIfIdle unsubscribes from NATS once no client listens to a topic.
// Caller must hold g.mu.
func (g *Gateway) dropTopicIfIdle(topic string) {
	if clients, ok := g.subscriptions[topic]; ok && len(clients) == 0 {
		if sub, ok := g.natsSubs[topic]; ok {
			sub.Unsubscribe()
			delete(g.natsSubs, topic)
		}
		delete(g.subscriptions, topic)
	}
}

func (g *Gateway) writePump(c *client) {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (g *Gateway) subscribeToNATS(topic string) error {
	sub, err := g.js.Subscribe(topic, func(msg *nats.Msg) {
		g.mu.RLock()
		for c := range g.subscriptions[topic] {
			select {
			case c.send <- msg.Data:
			default:
				// Slow client, drop instead of blocking the relay.
			}
		}
		g.mu.RUnlock()
		msg.Ack()
	}, nats.ManualAck())

	if err != nil {
		return err
	}

	g.natsSubs[topic] = sub
	g.logger.Info("subscribed to NATS topic", zap.String("topic", topic))
	return nil
}
