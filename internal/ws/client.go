// Package ws delivers fanout events to browsers over WebSocket. Each
// connection binds to exactly one topic; the capability check runs before
// the upgrade, everything after is a one-way pump from the bus.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace.git/internal/fanout"
	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send control frames.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	sub  *fanout.Subscription
	log  *zap.Logger
}

// Handler upgrades GET /ws?topic=... connections. Identity arrives in
// X-User-Id / X-Role headers, set by the upstream auth layer the core
// trusts; the fanout capability check is enforced here before upgrading.
func Handler(bus *fanout.Bus, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.URL.Query().Get("topic")
		if topic == "" {
			http.Error(w, "topic required", http.StatusBadRequest)
			return
		}
		ident := fanout.Identity{
			UserID: r.Header.Get("X-User-Id"),
			Role:   market.Role(r.Header.Get("X-Role")),
		}
		if !fanout.CanSubscribe(ident, topic) {
			http.Error(w, "subscription not permitted", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}

		c := &client{conn: conn, sub: bus.Subscribe(topic), log: log}
		go c.writePump()
		go c.readPump()
	}
}

// readPump only watches for the peer going away; subscribers have nothing
// to say to us beyond control frames.
func (c *client) readPump() {
	defer func() {
		c.sub.Cancel()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("ws read error", zap.String("topic", c.sub.Topic()), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Bus closed the subscription.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				c.log.Error("ws encode event", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
