package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/status-im/connector-bridge/common"
	"github.com/status-im/connector-bridge/metrics"
	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/envelope"
)

const (
	dropNotRequest  = "tab_not_request"
	dropMalformed   = "tab_malformed"
	dropRateLimited = "tab_rate_limited"

	tabBufferSize = 64

	backgroundSource = "background"
)

var (
	ErrTabNotConnected = errors.New("tab is not connected")
	ErrMissingTabID    = errors.New("missing or invalid tab id")
	ErrMissingOrigin   = errors.New("missing origin")
	ErrTabTaken        = errors.New("tab already has a live connection")
)

// Enqueuer accepts requests forwarded by a tab.
type Enqueuer interface {
	Enqueue(ctx context.Context, req *envelope.Request, senderTabID int, origin string) error
}

type tab struct {
	id      int
	origin  string
	ws      *channel.WebSocket
	limiter *rate.Limiter
}

// Hub accepts one websocket per tab from content scripts and routes messages back to
// them by tab id.
type Hub struct {
	enqueuer  Enqueuer
	rateLimit params.RateLimitConfig
	upgrader  websocket.Upgrader
	logger    *zap.Logger

	mu   sync.RWMutex
	tabs map[int]*tab
}

func New(rateLimit params.RateLimitConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rateLimit: rateLimit,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return common.IsExtensionOrigin(r.Header.Get("Origin"))
			},
		},
		logger: logger.Named("connector.hub"),
		tabs:   make(map[int]*tab),
	}
}

// SetEnqueuer must be called before the hub serves connections.
func (h *Hub) SetEnqueuer(enqueuer Enqueuer) {
	h.enqueuer = enqueuer
}

// ServeHTTP upgrades GET /extension?tab=<id>&origin=<url>. Only extension pages and
// native clients may connect, and a tab id can be taken again only once its previous
// connection is gone.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tabID, err := strconv.Atoi(r.URL.Query().Get("tab"))
	if err != nil || tabID < 0 {
		http.Error(w, ErrMissingTabID.Error(), http.StatusBadRequest)
		return
	}
	origin := common.NormalizeOrigin(r.URL.Query().Get("origin"))
	if origin == "" {
		http.Error(w, ErrMissingOrigin.Error(), http.StatusBadRequest)
		return
	}
	if h.isLive(tabID) {
		http.Error(w, ErrTabTaken.Error(), http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	t := &tab{
		id:      tabID,
		origin:  origin,
		ws:      channel.NewWebSocket(conn, strconv.Itoa(tabID), h.logger),
		limiter: h.newLimiter(),
	}
	if err := h.register(t); err != nil {
		h.logger.Warn("refusing tab connection", zap.Int("tabId", tabID), zap.Error(err))
		_ = t.ws.Close()
		return
	}
	go h.serveTab(t)
}

func (h *Hub) isLive(tabID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.liveLocked(tabID)
}

func (h *Hub) liveLocked(tabID int) bool {
	t, ok := h.tabs[tabID]
	if !ok {
		return false
	}
	select {
	case <-t.ws.Done():
		return false
	default:
		return true
	}
}

func (h *Hub) newLimiter() *rate.Limiter {
	if h.rateLimit.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.rateLimit.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.rateLimit.RequestsPerSecond), burst)
}

// register refuses t while another connection for the same tab is live. The upgrade
// check races with a second dial, so it is repeated under the lock.
func (h *Hub) register(t *tab) error {
	h.mu.Lock()
	if h.liveLocked(t.id) {
		h.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrTabTaken, t.id)
	}
	h.tabs[t.id] = t
	h.mu.Unlock()

	metrics.IncConnectedTabs()
	h.logger.Debug("tab connected", zap.Int("tabId", t.id), zap.String("origin", t.origin))
	return nil
}

func (h *Hub) unregister(t *tab) {
	h.mu.Lock()
	if h.tabs[t.id] == t {
		delete(h.tabs, t.id)
	}
	h.mu.Unlock()
	metrics.DecConnectedTabs()
}

func (h *Hub) serveTab(t *tab) {
	defer common.LogOnPanic()
	defer h.unregister(t)

	messages := make(chan channel.Message, tabBufferSize)
	sub := t.ws.Subscribe(messages)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case msg := <-messages:
			h.handle(ctx, t, msg)
		case <-t.ws.Done():
			return
		}
	}
}

func (h *Hub) drop(t *tab, reason string) {
	metrics.IncDroppedMessages(reason)
	h.logger.Debug("dropping message", zap.Int("tabId", t.id), zap.String("reason", reason))
}

func (h *Hub) handle(ctx context.Context, t *tab, msg channel.Message) {
	if !envelope.IsRequestEnvelope(msg.Data) {
		h.drop(t, dropNotRequest)
		return
	}
	req, err := envelope.DecodeRequest(msg.Data)
	if err != nil {
		h.drop(t, dropMalformed)
		return
	}
	if !t.limiter.Allow() {
		h.drop(t, dropRateLimited)
		h.refuse(ctx, t, req.RequestID)
		return
	}
	if h.enqueuer == nil {
		h.logger.Error("no enqueuer set")
		return
	}

	if err := h.enqueuer.Enqueue(ctx, req, t.id, t.origin); err != nil {
		h.logger.Debug("failed to enqueue request", zap.Int("tabId", t.id), zap.String("requestId", req.RequestID), zap.Error(err))
	}
}

// refuse answers a request that will never reach the approval queue.
func (h *Hub) refuse(ctx context.Context, t *tab, requestID string) {
	msg, err := channel.NewMessage(backgroundSource, envelope.NewRejection(requestID))
	if err != nil {
		return
	}
	if err := t.ws.Post(ctx, msg); err != nil {
		h.logger.Debug("failed to refuse request", zap.Int("tabId", t.id), zap.Error(err))
	}
}

// SendToTab delivers msg to the content script of tabID.
func (h *Hub) SendToTab(ctx context.Context, tabID int, msg channel.Message) error {
	h.mu.RLock()
	t, ok := h.tabs[tabID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrTabNotConnected, tabID)
	}
	return t.ws.Post(ctx, msg)
}

// Tabs returns the ids of connected tabs.
func (h *Hub) Tabs() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int, 0, len(h.tabs))
	for id := range h.tabs {
		ids = append(ids, id)
	}
	return ids
}

// Close drops every tab connection.
func (h *Hub) Close() error {
	h.mu.Lock()
	tabs := h.tabs
	h.tabs = make(map[int]*tab)
	h.mu.Unlock()

	var err error
	for _, t := range tabs {
		err = multierr.Append(err, t.ws.Close())
	}
	return err
}
