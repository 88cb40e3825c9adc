package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/status-im/connector-bridge/params"
)

const (
	// DefaultCallTimeout is a default timeout for an RPC call
	DefaultCallTimeout = time.Minute
)

// List of RPC client errors.
var (
	ErrUnsupportedChain = errors.New("chain is not configured")
)

// Dialer opens a client for an upstream URL.
type Dialer func(ctx context.Context, url string) (*gethrpc.Client, error)

type NetworkManager interface {
	Find(chainID uint64) *params.Network
}

type upstream struct {
	url    string
	client *gethrpc.Client
}

// Client routes calls to the upstream node of a chain. Upstream clients are dialed
// lazily and redialed when the configured URL of a chain changes.
//
// Client is safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	upstreams map[uint64]*upstream

	nm     NetworkManager
	dial   Dialer
	logger *zap.Logger
}

func NewClient(nm NetworkManager, dial Dialer, logger *zap.Logger) *Client {
	if dial == nil {
		dial = gethrpc.DialContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		upstreams: make(map[uint64]*upstream),
		nm:        nm,
		dial:      dial,
		logger:    logger.Named("rpc.Client"),
	}
}

// EthClient returns the upstream client of chainID.
func (c *Client) EthClient(ctx context.Context, chainID uint64) (*gethrpc.Client, error) {
	network := c.nm.Find(chainID)
	if network == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if u, ok := c.upstreams[chainID]; ok {
		if u.url == network.RPCURL {
			return u.client, nil
		}
		u.client.Close()
		delete(c.upstreams, chainID)
	}

	client, err := c.dial(ctx, network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial upstream server: %w", err)
	}
	c.logger.Debug("dialed upstream", zap.Uint64("chainId", chainID), zap.String("url", network.RPCURL))
	c.upstreams[chainID] = &upstream{url: network.RPCURL, client: client}
	return client, nil
}

// CallContext performs a JSON-RPC call on the upstream of chainID. Calls without a
// deadline are bounded by DefaultCallTimeout.
func (c *Client) CallContext(ctx context.Context, chainID uint64, result interface{}, method string, args ...interface{}) error {
	client, err := c.EthClient(ctx, chainID)
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}
	return client.CallContext(ctx, result, method, args...)
}

// Close closes every upstream client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for chainID, u := range c.upstreams {
		u.client.Close()
		delete(c.upstreams, chainID)
	}
}
