package hub

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errShutdownTimeout = errors.New("hub shutdown timeout")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one websocket session. It stays anonymous until the peer
// sends user_online, at which point it is bound to a username in the
// hub's presence map.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	addr     string
	username string
}

type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type userOnlinePayload struct {
	Username string `json:"username"`
}

// Serve attaches a freshly upgraded connection to the hub and starts
// its read/write pumps. The caller must already hold an Admit slot for
// addr; the slot is released when the connection ends.
func (h *Hub) Serve(conn *websocket.Conn, addr string) {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		addr: addr,
	}

	conn.SetReadLimit(maxMessageSize)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error",
					zap.String("addr", c.addr),
					zap.Error(err),
				)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.logger.Debug("invalid client frame",
				zap.String("addr", c.addr),
				zap.Error(err),
			)
			continue
		}

		if event.Event == EventUserOnline {
			var payload userOnlinePayload
			if err := json.Unmarshal(event.Data, &payload); err != nil ||
				!c.hub.validUsername(payload.Username) {
				// A session claiming a malformed username is cut off.
				return
			}
			c.hub.bind(c, payload.Username)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) close() {
	_ = c.conn.Close()
}
