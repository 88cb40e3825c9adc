package network

import (
	"errors"
	"sync"

	"github.com/status-im/connector-bridge/params"
)

var ErrNetworkNotFound = errors.New("network not found")

// Manager keeps the networks dApps may connect to, in configuration order.
type Manager struct {
	mu       sync.RWMutex
	networks []*params.Network
}

func NewManager(networks []params.Network) *Manager {
	nm := &Manager{}
	nm.Init(networks)
	return nm
}

// Init loads networks unless some are already known.
func (nm *Manager) Init(networks []params.Network) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if len(nm.networks) > 0 {
		return
	}
	for i := range networks {
		network := networks[i]
		nm.networks = append(nm.networks, &network)
	}
}

// Upsert replaces the network with the same chain id or appends a new one.
func (nm *Manager) Upsert(network *params.Network) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	copied := *network
	for i, n := range nm.networks {
		if n.ChainID == network.ChainID {
			nm.networks[i] = &copied
			return
		}
	}
	nm.networks = append(nm.networks, &copied)
}

func (nm *Manager) Delete(chainID uint64) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	for i, n := range nm.networks {
		if n.ChainID == chainID {
			nm.networks = append(nm.networks[:i], nm.networks[i+1:]...)
			return nil
		}
	}
	return ErrNetworkNotFound
}

// Find returns a copy of the network with chainID, nil if unknown.
func (nm *Manager) Find(chainID uint64) *params.Network {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	for _, n := range nm.networks {
		if n.ChainID == chainID {
			copied := *n
			return &copied
		}
	}
	return nil
}

func (nm *Manager) Get(onlyEnabled bool) ([]*params.Network, error) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	var res []*params.Network
	for _, n := range nm.networks {
		if onlyEnabled && !n.Enabled {
			continue
		}
		copied := *n
		res = append(res, &copied)
	}
	return res, nil
}

// GetActiveNetworks returns the enabled networks, the default one first.
func (nm *Manager) GetActiveNetworks() ([]*params.Network, error) {
	return nm.Get(true)
}
