package transport

import (
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
)

// Conn adapts a TCP socket to domain.Connection. Reads go straight to the
// socket; writes are queued and drained by a single write pump.
type Conn struct {
	id     string
	conn   net.Conn
	out    *outbox
	logger *slog.Logger
}

func NewConn(conn net.Conn, queueSize int, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	c := &Conn{
		id:     id,
		conn:   conn,
		out:    newOutbox(queueSize),
		logger: logger.With("clientId", id, "remote", conn.RemoteAddr().String()),
	}
	go c.writePump()
	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

func (c *Conn) Send(data []byte) error {
	return c.out.enqueue(data)
}

func (c *Conn) Close() error {
	return c.out.shut(c.conn.Close)
}

func (c *Conn) writePump() {
	for {
		select {
		case data := <-c.out.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := c.conn.Write(data); err != nil {
				c.logger.Debug("write error", "error", err)
				c.Close()
				return
			}
		case <-c.out.done:
			return
		}
	}
}
