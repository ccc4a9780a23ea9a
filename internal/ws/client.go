package ws

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fauxi/consensus-backend/internal/models"
)

// Conn is the transport surface a client needs: the named-event send and
// receive primitives of the underlying connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live participant connection attached to the hub.
type Client struct {
	ID   string
	hub  *Hub
	conn Conn
	send chan []byte
	log  zerolog.Logger
}

// sendBuffer bounds how far a recipient may fall behind before it is
// dropped by the hub.
const sendBuffer = 256

// NewClient wraps a transport connection for the hub. The caller registers
// it and starts both pumps.
func (h *Hub) NewClient(id string, conn Conn) *Client {
	return &Client{
		ID:   id,
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		log:  h.log.With().Str("user_id", id).Logger(),
	}
}

// Register hands the client to the hub's run loop, which joins it to the
// session registry and announces it.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes the client. Safe to call more than once; the run loop
// treats repeats as no-ops.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// ReadPump reads envelopes off the connection and feeds them to the hub
// until the connection errors, then unregisters the client. Malformed
// frames are logged and skipped; the connection stays up.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("read error")
			}
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.log.Warn().Msg("dropping malformed frame")
			continue
		}
		c.hub.inbound <- inboundEvent{sender: c, envelope: env}
	}
}

// WritePump drains the send buffer onto the connection. It exits when the
// hub closes the buffer (departure or slow-client drop) or a write fails;
// a failed write only costs this client its connection, never the others.
func (c *Client) WritePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.log.Warn().Err(err).Msg("write error")
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
