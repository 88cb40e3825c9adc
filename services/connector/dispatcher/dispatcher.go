package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/status-im/connector-bridge/account"
	"github.com/status-im/connector-bridge/metrics"
	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/chainutils"
	"github.com/status-im/connector-bridge/services/connector/envelope"
	"github.com/status-im/connector-bridge/signal"
	"github.com/status-im/connector-bridge/transactions"
)

var (
	ErrRequestNotFound    = errors.New("request not found")
	ErrDuplicateRequest   = errors.New("request is already pending")
	ErrUnsupportedNetwork = chainutils.ErrUnsupportedNetwork
	ErrAccountRequired    = errors.New("no account selected for request")
	ErrAccountMismatch    = errors.New("transaction sender is not the selected account")
	ErrSessionNotFound    = errors.New("tab has no session")
	ErrDispatcherStopped  = errors.New("dispatcher stopped")
	ErrOperationPanicked  = errors.New("operation panicked")
)

// ClientProvider returns the upstream client of a chain.
type ClientProvider interface {
	EthClient(ctx context.Context, chainID uint64) (*gethrpc.Client, error)
}

type Config struct {
	Router     TabRouter
	Signer     account.Signer
	Networks   chainutils.NetworkManagerInterface
	Clients    ClientProvider
	Transactor *transactions.Transactor
	// SessionTTL is the idle expiry of tab sessions, params.DefaultSessionTTL when zero.
	SessionTTL time.Duration
	Logger     *zap.Logger
}

// ConfirmArgs carries the user's decision details.
type ConfirmArgs struct {
	RequestID string `json:"requestId"`
	// Account overrides the account of the tab session.
	Account *common.Address `json:"account,omitempty"`
}

type command struct {
	ctx  context.Context
	run  func(ctx context.Context) error
	done chan error
}

// Dispatcher owns the approval queue. Every state change runs on the loop started by
// Run, one at a time, in submission order.
type Dispatcher struct {
	router     TabRouter
	signer     account.Signer
	networks   chainutils.NetworkManagerInterface
	clients    ClientProvider
	transactor *transactions.Transactor
	logger     *zap.Logger

	pending  *pendingQueue
	sessions *sessionStore

	commands chan command
	stopped  chan struct{}
	stopOnce sync.Once
}

func New(config Config) *Dispatcher {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("connector.dispatcher")

	ttl := config.SessionTTL
	if ttl <= 0 {
		ttl = params.DefaultSessionTTL
	}
	transactor := config.Transactor
	if transactor == nil {
		transactor = transactions.NewTransactor(logger)
	}

	return &Dispatcher{
		router:     config.Router,
		signer:     config.Signer,
		networks:   config.Networks,
		clients:    config.Clients,
		transactor: transactor,
		logger:     logger,
		pending:    newPendingQueue(),
		sessions:   newSessionStore(ttl, logger),
		commands:   make(chan command),
		stopped:    make(chan struct{}),
	}
}

// Run serves commands until ctx is done. It must be called exactly once.
func (d *Dispatcher) Run(ctx context.Context) {
	go d.sessions.cache.Start()
	defer d.sessions.cache.Stop()
	defer d.stopOnce.Do(func() { close(d.stopped) })

	for {
		select {
		case cmd := <-d.commands:
			cmd.done <- d.execute(cmd)
		case <-ctx.Done():
			return
		}
	}
}

// execute keeps the loop alive whatever a command does.
func (d *Dispatcher) execute(cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("command panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()
	return cmd.run(cmd.ctx)
}

func (d *Dispatcher) submit(ctx context.Context, run func(ctx context.Context) error) error {
	cmd := command{ctx: ctx, run: run, done: make(chan error, 1)}
	select {
	case d.commands <- cmd:
	case <-d.stopped:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue stores a request forwarded by the content script of senderTabID.
func (d *Dispatcher) Enqueue(ctx context.Context, req *envelope.Request, senderTabID int, origin string) error {
	if req == nil {
		return envelope.ErrMalformedEnvelope
	}
	if err := req.Validate(); err != nil {
		return err
	}

	return d.submit(ctx, func(ctx context.Context) error {
		item := &PendingItem{
			Request:     req,
			SenderTabID: senderTabID,
			Origin:      origin,
			CreatedAt:   time.Now(),
		}
		if !d.pending.add(item) {
			return fmt.Errorf("%w: %s", ErrDuplicateRequest, req.RequestID)
		}
		metrics.SetPendingRequests(d.pending.len())
		d.logger.Debug("request enqueued",
			zap.String("requestId", req.RequestID),
			zap.String("type", string(req.Type)),
			zap.Int("tabId", senderTabID),
			zap.String("origin", origin))
		signal.SendConnectorDAppRequestAdded(req.RequestID, string(req.Type), origin, senderTabID, req)
		return nil
	})
}

// Confirm performs the wallet side of a pending request and answers its tab. The item
// is removed whatever the outcome; a failed operation sends nothing.
func (d *Dispatcher) Confirm(ctx context.Context, args ConfirmArgs) error {
	return d.submit(ctx, func(ctx context.Context) error {
		return d.confirm(ctx, args)
	})
}

func (d *Dispatcher) confirm(ctx context.Context, args ConfirmArgs) (err error) {
	item, ok := d.pending.get(args.RequestID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, args.RequestID)
	}
	defer func() {
		outcome := metrics.OutcomeConfirmed
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		d.resolve(item, outcome, err)
	}()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("confirm panicked", zap.String("requestId", args.RequestID), zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()

	if args.Account != nil {
		address := *args.Account
		item.Account = &address
	}

	resp, err := d.operate(ctx, item)
	if err != nil {
		d.logger.Error("confirm failed",
			zap.String("requestId", args.RequestID),
			zap.String("type", string(item.Request.Type)),
			zap.Error(err))
		return err
	}
	return d.sendToTab(ctx, item.SenderTabID, resp)
}

// Reject answers a pending request with TransactionRejected without touching the wallet.
func (d *Dispatcher) Reject(ctx context.Context, requestID string) error {
	return d.submit(ctx, func(ctx context.Context) (err error) {
		item, ok := d.pending.get(requestID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		defer func() {
			d.resolve(item, metrics.OutcomeRejected, err)
		}()

		return d.sendToTab(ctx, item.SenderTabID, envelope.NewRejection(requestID))
	})
}

// resolve removes item from the queue. It runs exactly once per confirm or reject.
func (d *Dispatcher) resolve(item *PendingItem, outcome string, err error) {
	if !d.pending.remove(item.Request.RequestID) {
		return
	}
	metrics.SetPendingRequests(d.pending.len())
	metrics.ObserveDecision(string(item.Request.Type), outcome, time.Since(item.CreatedAt))
	signal.SendConnectorDAppRequestResolved(item.Request.RequestID, outcome == metrics.OutcomeConfirmed && err == nil, err)
}

// Pending lists the queued requests, oldest first.
func (d *Dispatcher) Pending() []PendingItem {
	return d.pending.list()
}

// Session returns what tabID was granted.
func (d *Dispatcher) Session(tabID int) (Session, bool) {
	return d.sessions.get(tabID)
}

// SwitchChain moves tabID to chainID on the wallet's initiative and notifies its page.
func (d *Dispatcher) SwitchChain(ctx context.Context, tabID int, chainID uint64) error {
	return d.submit(ctx, func(ctx context.Context) error {
		session, ok := d.sessions.get(tabID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrSessionNotFound, tabID)
		}
		hexChainID := chainutils.GetHexChainID(chainID)
		network, err := chainutils.FindActiveNetworkByID(d.networks, chainID)
		if err != nil {
			return fmt.Errorf("%w: %s", err, hexChainID)
		}

		session.ChainID = network.ChainID
		d.sessions.set(tabID, session)

		notification := &envelope.Notification{
			Type:        envelope.ChainSwitched,
			ChainID:     hexChainID,
			ProviderURL: network.RPCURL,
		}
		if err := d.sendToTab(ctx, tabID, notification); err != nil {
			return err
		}
		signal.SendConnectorDAppChainIdSwitched(tabID, hexChainID)
		return nil
	})
}

// Disconnect revokes what tabID was granted and notifies its page.
func (d *Dispatcher) Disconnect(ctx context.Context, tabID int) error {
	return d.submit(ctx, func(ctx context.Context) error {
		session, ok := d.sessions.get(tabID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrSessionNotFound, tabID)
		}
		d.sessions.delete(tabID)
		signal.SendConnectorDAppPermissionRevoked(session.Origin, tabID)

		return d.sendToTab(ctx, tabID, &envelope.Notification{Type: envelope.Disconnected})
	})
}

// sendToTab always addresses the tab recorded with the request.
func (d *Dispatcher) sendToTab(ctx context.Context, tabID int, payload interface{}) error {
	msg, err := channel.NewMessage(BackgroundSource, payload)
	if err != nil {
		return err
	}
	if err := d.router.SendToTab(ctx, tabID, msg); err != nil {
		return fmt.Errorf("send to tab %d: %w", tabID, err)
	}
	return nil
}
