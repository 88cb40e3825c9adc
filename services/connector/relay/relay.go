package relay

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/event"

	"github.com/status-im/connector-bridge/common"
	"github.com/status-im/connector-bridge/metrics"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/envelope"
)

const (
	dropForeignSource = "foreign_source"
	dropNotRequest    = "not_request"
	dropNotResponse   = "not_response"

	subscriptionBufferSize = 64
)

// NotificationTarget receives wallet-initiated notifications. The page provider
// implements it.
type NotificationTarget interface {
	Disconnect()
	SwitchChain(chainID, providerURL string)
}

// Relay forwards request envelopes posted by its own window to the extension and
// response envelopes from the extension back to the window. It keeps no state
// besides its subscriptions.
type Relay struct {
	page      channel.Channel
	windowID  string
	extension channel.Channel
	target    NotificationTarget
	logger    *zap.Logger

	startOnce     sync.Once
	extensionOnce sync.Once
	stopOnce      sync.Once
	quit          chan struct{}
	wg            sync.WaitGroup
}

// New creates a relay for the window identified by windowID. target may be nil.
func New(page channel.Channel, windowID string, extension channel.Channel, target NotificationTarget, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		page:      page,
		windowID:  windowID,
		extension: extension,
		target:    target,
		logger:    logger.Named("connector.relay").With(zap.String("window", windowID)),
		quit:      make(chan struct{}),
	}
}

// Start subscribes to both channels. Calling it again has no effect.
func (r *Relay) Start() {
	r.startOnce.Do(func() {
		r.listenPage()
		r.listenExtension()
	})
}

// Stop cancels the subscriptions and waits for the forwarding loops to exit.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
	r.wg.Wait()
}

func (r *Relay) listenPage() {
	messages := make(chan channel.Message, subscriptionBufferSize)
	sub := r.page.Subscribe(messages)
	r.loop(sub, messages, r.handlePageMessage)
}

// listenExtension subscribes to the extension exactly once per relay, however many
// times it is reached.
func (r *Relay) listenExtension() {
	r.extensionOnce.Do(func() {
		messages := make(chan channel.Message, subscriptionBufferSize)
		sub := r.extension.Subscribe(messages)
		r.loop(sub, messages, r.handleExtensionMessage)
	})
}

func (r *Relay) loop(sub event.Subscription, messages <-chan channel.Message, handle func(context.Context, channel.Message)) {
	ctx, cancel := context.WithCancel(context.Background())
	r.wg.Add(1)
	go func() {
		defer common.LogOnPanic()
		defer r.wg.Done()
		defer cancel()
		defer sub.Unsubscribe()

		for {
			select {
			case msg := <-messages:
				handle(ctx, msg)
			case err := <-sub.Err():
				if err != nil {
					r.logger.Warn("subscription failed", zap.Error(err))
				}
				return
			case <-r.quit:
				return
			}
		}
	}()
}

func (r *Relay) drop(reason string, msg channel.Message) {
	metrics.IncDroppedMessages(reason)
	r.logger.Debug("dropping message", zap.String("reason", reason), zap.String("source", msg.Source))
}

func (r *Relay) handlePageMessage(ctx context.Context, msg channel.Message) {
	if msg.Source != r.windowID {
		r.drop(dropForeignSource, msg)
		return
	}
	// responses forwarded by this relay come back on the page channel
	if envelope.IsResponseEnvelope(msg.Data) {
		return
	}
	if !envelope.IsRequestEnvelope(msg.Data) {
		r.drop(dropNotRequest, msg)
		return
	}

	if err := r.extension.Post(ctx, channel.Message{Source: r.windowID, Data: msg.Data}); err != nil {
		r.logger.Warn("failed to forward request", zap.Error(err))
	}
}

func (r *Relay) handleExtensionMessage(ctx context.Context, msg channel.Message) {
	switch {
	case envelope.IsResponseEnvelope(msg.Data):
		if err := r.page.Post(ctx, channel.Message{Source: r.windowID, Data: msg.Data}); err != nil {
			r.logger.Warn("failed to forward response", zap.Error(err))
		}
	case envelope.IsNotificationEnvelope(msg.Data):
		r.notify(msg)
	default:
		r.drop(dropNotResponse, msg)
	}
}

func (r *Relay) notify(msg channel.Message) {
	notification, err := envelope.DecodeNotification(msg.Data)
	if err != nil {
		r.drop(dropNotResponse, msg)
		return
	}
	if r.target == nil {
		return
	}

	switch notification.Type {
	case envelope.ChainSwitched:
		r.target.SwitchChain(notification.ChainID, notification.ProviderURL)
	case envelope.Disconnected:
		r.target.Disconnect()
	}
}
