package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Listener accepts TCP connections and hands each one to its own goroutine.
type Listener struct {
	ln        net.Listener
	queueSize int
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// Listen binds addr. A bind failure is returned to the caller, which treats
// it as fatal.
func Listen(addr string, queueSize int, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, queueSize: queueSize, logger: logger}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve runs the accept loop until the listener is closed or ctx is done.
// handle runs once per connection and owns it. Accept errors other than a
// closed listener are logged and the loop keeps going.
func (l *Listener) Serve(ctx context.Context, handle func(context.Context, *Conn)) error {
	stop := context.AfterFunc(ctx, func() { l.ln.Close() })
	defer stop()

	var delay time.Duration
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = min(max(2*delay, 5*time.Millisecond), time.Second)
			l.logger.Error("accept error", "error", err, "retryIn", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		c := NewConn(nc, l.queueSize, l.logger)
		l.logger.Debug("client connected", "clientId", c.ID(), "remote", nc.RemoteAddr().String())

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			handle(ctx, c)
		}()
	}
}

func (l *Listener) Close() error {
	return l.ln.Close()
}

// Wait blocks until every connection handler has returned or ctx is done.
func (l *Listener) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
