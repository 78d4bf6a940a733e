package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arvi-k/physlab/internal/core"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer. Spectators only listen, so
	// anything beyond a pong is noise.
	maxMessageSize = 512
)

// Client is one active spectator connection watching a session.
type Client struct {
	hub     *Hub
	session string
	conn    *websocket.Conn
	send    chan []byte
}

// NewClient wraps an upgraded connection as a spectator of the given session.
func NewClient(hub *Hub, sessionID string, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		session: sessionID,
		conn:    conn,
		send:    make(chan []byte, 256),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// Prime queues the latest snapshot so a late joiner sees the current state
// before the next broadcast frame. Must be called before the pumps start.
func (c *Client) Prime(snap core.Snapshot) {
	if payload, err := json.Marshal(snap); err == nil {
		c.send <- payload
	}
}

// ReadPump drains the connection until the peer goes away. Incoming payloads
// are discarded (intents arrive over the REST API); the loop exists to run
// the pong handler and detect closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnf("spectator read error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued frames to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
