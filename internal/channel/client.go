package channel

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gulshan36/QuickRides/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is one websocket connection acting as an Endpoint. Inbound frames
// are handed to OnMessage; routing them to services is the handler layer's
// job, the client only runs the pumps.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	ActorID string
	Role    domain.Role

	// OnMessage is invoked from the read pump for every inbound frame.
	OnMessage func(c *Client, frame []byte)
	// OnClose is invoked once, after the connection is torn down.
	OnClose func(c *Client)

	closeOnce sync.Once
}

// NewClient wraps an upgraded websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn, actorID string, role domain.Role) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		ActorID: actorID,
		Role:    role,
	}
}

var _ Endpoint = (*Client)(nil)

// Queue enqueues a frame for delivery without blocking.
func (c *Client) Queue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Run starts the read and write pumps. It blocks until the connection is
// closed, then unbinds the client from the hub.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("channel: read %s %s: %v", c.Role, c.ActorID, err)
			}
			return
		}
		if c.OnMessage != nil {
			c.OnMessage(c, frame)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		c.hub.Drop(c)
		close(c.done)
		c.conn.Close()
		if c.OnClose != nil {
			c.OnClose(c)
		}
	})
}
