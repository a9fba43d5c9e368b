package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raheem101000-netizen/TournamentAutomation-sub001/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

const (
	FrameTypeMessage = "message"
	FrameTypeError   = "error"
)

// InboundFrame is what a connected client sends to submit a message.
type InboundFrame struct {
	Body      string  `json:"body"`
	ReplyToID *string `json:"reply_to_id,omitempty"`
	ImageKey  *string `json:"image_key,omitempty"`
	ClientTag *string `json:"client_tag,omitempty"`
}

// OutboundFrame is what the server pushes: either a delivered message or
// an error notice scoped to this connection.
type OutboundFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SubmitFunc turns an inbound frame into a room append. Validation and
// persistence failures come back as errors and are reported to the client
// as an error frame, never as a connection close.
type SubmitFunc func(ctx context.Context, frame InboundFrame) error

// Client pairs one websocket connection with one room for the connection's
// lifetime. Read and write pumps run as separate goroutines, the usual
// gorilla/websocket split.
type Client struct {
	room   *Room
	conn   *websocket.Conn
	send   chan []byte
	submit SubmitFunc
	logger *slog.Logger

	mu       sync.Mutex
	isClosed bool
}

func NewClient(room *Room, conn *websocket.Conn, submit SubmitFunc, logger *slog.Logger) *Client {
	return &Client{
		room:   room,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		submit: submit,
		logger: logger,
	}
}

// Deliver queues a room message for this connection. A full buffer means
// the client has stalled; the room will drop the connection and the write
// pump tears it down.
func (c *Client) Deliver(msg *models.Message) bool {
	data, err := json.Marshal(OutboundFrame{Type: FrameTypeMessage, Payload: msg})
	if err != nil {
		c.logger.Error("failed to marshal outbound frame",
			slog.String("room", c.room.Key), slog.Any("error", err))
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendError(message string) {
	data, err := json.Marshal(OutboundFrame{
		Type:    FrameTypeError,
		Payload: map[string]string{"error": message},
	})
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close shuts the send channel, which drives the write pump to send a
// close frame and drop the socket. Idempotent; called on read teardown and
// by the room when it fails.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.send)
		c.isClosed = true
	}
}

// ReadPump consumes inbound frames until the connection drops. A malformed
// frame is answered with an error notice and the loop continues; only
// transport errors end the connection.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.room.Detach(c)
		c.Close()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error",
					slog.String("room", c.room.Key), slog.Any("error", err))
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("malformed frame: " + err.Error())
			continue
		}
		if err := c.submit(ctx, frame); err != nil {
			c.sendError(err.Error())
		}
	}
}

// WritePump drains the send buffer to the socket and keeps the connection
// alive with pings. A write error tears down only this connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("websocket write error",
					slog.String("room", c.room.Key), slog.Any("error", err))
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
