package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/event"

	"github.com/status-im/connector-bridge/common"
)

const (
	writeWait       = 10 * time.Second
	maxMessageSize  = 1 << 20
	maxReconnectGap = 30 * time.Second
)

// WebSocket carries envelopes between a content script and the background process.
// Only the envelope travels on the wire; the receiving end stamps Source itself, so a
// peer cannot claim to be someone else.
//
// Reading starts with the first subscription, so nothing received before it is lost.
// A WebSocket created by DialWebSocket reconnects with exponential backoff when the
// connection drops. One wrapping an accepted connection is done once the peer leaves.
type WebSocket struct {
	source string
	feed   event.Feed
	logger *zap.Logger

	dial func(ctx context.Context) (*websocket.Conn, error)

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocket wraps an accepted connection. Received messages are stamped with source.
func NewWebSocket(conn *websocket.Conn, source string, logger *zap.Logger) *WebSocket {
	w := newWebSocket(source, logger)
	w.conn = conn
	return w
}

// DialWebSocket connects to url, retrying until ctx is done, and keeps the connection
// alive until Close. Received messages are stamped with source.
func DialWebSocket(ctx context.Context, url string, header http.Header, source string, logger *zap.Logger) (*WebSocket, error) {
	w := newWebSocket(source, logger)
	w.dial = func(ctx context.Context) (*websocket.Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		return conn, err
	}

	conn, err := w.connect(ctx)
	if err != nil {
		w.cancel()
		return nil, err
	}
	w.setConn(conn)
	return w, nil
}

func newWebSocket(source string, logger *zap.Logger) *WebSocket {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		source: source,
		logger: logger.Named("websocket").With(zap.String("source", source)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (w *WebSocket) Post(ctx context.Context, msg Message) error {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg.Data)
}

func (w *WebSocket) Subscribe(ch chan<- Message) event.Subscription {
	sub := w.feed.Subscribe(ch)
	w.startOnce.Do(func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		go w.serve(conn)
	})
	return sub
}

// Done is closed once the channel can no longer carry messages.
func (w *WebSocket) Done() <-chan struct{} {
	return w.done
}

func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		// nobody ever read from it
		w.startOnce.Do(func() { close(w.done) })
		w.cancel()
		w.mu.Lock()
		if w.conn != nil {
			w.writeMu.Lock()
			_ = w.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			w.writeMu.Unlock()
			err = w.conn.Close()
		}
		w.mu.Unlock()
	})
	return err
}

func (w *WebSocket) setConn(conn *websocket.Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
}

func (w *WebSocket) connect(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxReconnectGap
	b.MaxElapsedTime = 0

	var conn *websocket.Conn
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = w.dial(ctx)
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		w.logger.Debug("dial failed, retrying", zap.Error(err), zap.Duration("in", next))
	})
	return conn, err
}

// serve reads conn until it breaks, then reconnects if the channel was dialed.
func (w *WebSocket) serve(conn *websocket.Conn) {
	defer common.LogOnPanic()
	defer close(w.done)

	for {
		w.read(conn)

		if w.dial == nil || w.ctx.Err() != nil {
			return
		}

		w.setConn(nil)
		w.logger.Info("connection lost, reconnecting")
		next, err := w.connect(w.ctx)
		if err != nil {
			return
		}
		w.setConn(next)
		conn = next
	}
}

func (w *WebSocket) read(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Warn("read failed", zap.Error(err))
			}
			_ = conn.Close()
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		w.feed.Send(Message{Source: w.source, Data: data})
	}
}
