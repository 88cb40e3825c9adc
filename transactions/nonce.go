package transactions

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type UnlockNonceFunc func(inc bool, n uint64)

// Nonce hands out nonces per chain and sender, combining the node's pending count with
// what this process already sent.
type Nonce struct {
	addrLock   *AddrLocker
	mu         sync.Mutex
	localNonce map[uint64]*sync.Map
}

func NewNonce() *Nonce {
	return &Nonce{
		addrLock:   &AddrLocker{},
		localNonce: make(map[uint64]*sync.Map),
	}
}

func (n *Nonce) chainNonces(chainID uint64) *sync.Map {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.localNonce[chainID]; !ok {
		n.localNonce[chainID] = &sync.Map{}
	}
	return n.localNonce[chainID]
}

// Next locks from and returns the nonce to use. The returned unlock must be called exactly
// once; inc records nonce as used.
func (n *Nonce) Next(ctx context.Context, rpcWrapper *rpcWrapper, from common.Address) (uint64, UnlockNonceFunc, error) {
	n.addrLock.LockAddr(from)
	current, err := n.GetCurrent(ctx, rpcWrapper, from)
	if err != nil {
		n.addrLock.UnlockAddr(from)
		return 0, nil, err
	}

	unlock := func(inc bool, nonce uint64) {
		if inc {
			n.chainNonces(rpcWrapper.chainID).Store(from, nonce+1)
		}
		n.addrLock.UnlockAddr(from)
	}

	return current, unlock, nil
}

func (n *Nonce) GetCurrent(ctx context.Context, rpcWrapper *rpcWrapper, from common.Address) (uint64, error) {
	var localNonce uint64

	// get the local nonce
	if val, ok := n.chainNonces(rpcWrapper.chainID).Load(from); ok {
		localNonce = val.(uint64)
	}

	// get the remote nonce
	remoteNonce, err := rpcWrapper.PendingNonceAt(ctx, from)
	if err != nil {
		return 0, err
	}

	// if upstream node returned nonce higher than ours we will use it, as it probably means
	// that another client was used for sending transactions
	if remoteNonce > localNonce {
		return remoteNonce, nil
	}
	return localNonce, nil
}

// Local returns the next nonce this process would use for from on chainID, if any was recorded.
func (n *Nonce) Local(chainID uint64, from common.Address) (uint64, bool) {
	val, ok := n.chainNonces(chainID).Load(from)
	if !ok {
		return 0, false
	}
	return val.(uint64), true
}
