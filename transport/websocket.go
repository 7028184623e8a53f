package transport

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// WSConn carries the line protocol over a WebSocket. Inbound text messages
// are read as one continuous byte stream, so records must still end with a
// line feed; every queued outbound item becomes one text message.
type WSConn struct {
	id     string
	ws     *websocket.Conn
	out    *outbox
	reader io.Reader
	logger *slog.Logger
}

func NewWSConn(ws *websocket.Conn, queueSize int, logger *slog.Logger) *WSConn {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	c := &WSConn{
		id:     id,
		ws:     ws,
		out:    newOutbox(queueSize),
		logger: logger.With("clientId", id, "remote", ws.RemoteAddr().String()),
	}

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.writePump()
	return c
}

func (c *WSConn) ID() string { return c.id }

func (c *WSConn) Send(data []byte) error {
	return c.out.enqueue(data)
}

func (c *WSConn) Close() error {
	return c.out.shut(c.ws.Close)
}

// Read must only be called from one goroutine.
func (c *WSConn) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error("read error", "error", err)
				}
				return 0, err
			}
			c.reader = r
		}

		n, err := c.reader.Read(p)
		if errors.Is(err, io.EOF) {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.out.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.out.done:
			return
		}
	}
}
