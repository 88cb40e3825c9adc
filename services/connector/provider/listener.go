package provider

import (
	"github.com/ethereum/go-ethereum/common"

	perrors "github.com/status-im/connector-bridge/errors"
)

// ConnectInfo is the payload of the connect event.
type ConnectInfo struct {
	ChainID string `json:"chainId"`
}

// Listener receives provider events. Embed NopListener to implement a subset.
type Listener interface {
	OnConnect(info ConnectInfo)
	OnChainChanged(chainID string)
	OnAccountsChanged(accounts []common.Address)
	OnDisconnect(err *perrors.ProviderError)
}

type NopListener struct{}

func (NopListener) OnConnect(ConnectInfo)                {}
func (NopListener) OnChainChanged(string)                {}
func (NopListener) OnAccountsChanged([]common.Address)   {}
func (NopListener) OnDisconnect(*perrors.ProviderError) {}

// AddListener registers l and returns a function removing it.
func (p *Provider) AddListener(l Listener) func() {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()

	id := p.nextListenerID
	p.nextListenerID++
	p.listeners[id] = l

	return func() {
		p.listenersMu.Lock()
		defer p.listenersMu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) snapshotListeners() []Listener {
	p.listenersMu.RLock()
	defer p.listenersMu.RUnlock()
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func (p *Provider) emitConnect(chainID string) {
	for _, l := range p.snapshotListeners() {
		l.OnConnect(ConnectInfo{ChainID: chainID})
	}
}

func (p *Provider) emitChainChanged(chainID string) {
	for _, l := range p.snapshotListeners() {
		l.OnChainChanged(chainID)
	}
}

func (p *Provider) emitAccountsChanged(accounts []common.Address) {
	for _, l := range p.snapshotListeners() {
		l.OnAccountsChanged(accounts)
	}
}

func (p *Provider) emitDisconnect(err *perrors.ProviderError) {
	for _, l := range p.snapshotListeners() {
		l.OnDisconnect(err)
	}
}
