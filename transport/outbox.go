package transport

import (
	"errors"
	"sync"
	"time"
)

const (
	writeWait        = 10 * time.Second
	DefaultQueueSize = 256
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrClosed        = errors.New("connection closed")
)

// outbox is the ordered queue between fanout and a connection's write
// pump. Enqueueing never blocks.
type outbox struct {
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &outbox{
		send: make(chan []byte, size),
		done: make(chan struct{}),
	}
}

func (o *outbox) enqueue(data []byte) error {
	select {
	case <-o.done:
		return ErrClosed
	default:
	}

	select {
	case o.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// shut runs closeFn once; later calls return nil.
func (o *outbox) shut(closeFn func() error) error {
	var err error
	o.once.Do(func() {
		close(o.done)
		err = closeFn()
	})
	return err
}
