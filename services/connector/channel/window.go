package channel

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/event"

	"github.com/status-im/connector-bridge/common"
)

const defaultWindowQueueSize = 256

// Window is the in-page message bus. Post never delivers synchronously: messages are
// queued and fanned out by a single goroutine, so a subscriber may post from its own
// handler without deadlocking.
type Window struct {
	id    string
	feed  event.Feed
	queue chan Message

	quit      chan struct{}
	closeOnce sync.Once
}

// NewWindow starts the delivery loop of a window identified by id.
func NewWindow(id string) *Window {
	w := &Window{
		id:    id,
		queue: make(chan Message, defaultWindowQueueSize),
		quit:  make(chan struct{}),
	}
	go w.deliver()
	return w
}

// ID is the source stamped on messages posted by scripts of this window.
func (w *Window) ID() string {
	return w.id
}

func (w *Window) Post(ctx context.Context, msg Message) error {
	select {
	case <-w.quit:
		return ErrClosed
	default:
	}

	select {
	case w.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return ErrClosed
	}
}

func (w *Window) Subscribe(ch chan<- Message) event.Subscription {
	return w.feed.Subscribe(ch)
}

// Close stops delivery. Queued messages are dropped.
func (w *Window) Close() {
	w.closeOnce.Do(func() {
		close(w.quit)
	})
}

func (w *Window) deliver() {
	defer common.LogOnPanic()
	for {
		select {
		case msg := <-w.queue:
			w.feed.Send(msg)
		case <-w.quit:
			return
		}
	}
}
