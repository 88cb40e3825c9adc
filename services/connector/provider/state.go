package provider

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// State is the connection state seen by the page. Values are never mutated once
// published; every change stores a new State.
type State struct {
	IsConnected bool
	// ChainID is the hex chain id, empty before the first connect.
	ChainID string
	// PublicKey is the shared account, nil unless a GetAccount round trip succeeded
	// and no disconnect happened since.
	PublicKey   *common.Address
	ProviderURL string
}

// Accounts returns the shared accounts as the page sees them.
func (s State) Accounts() []string {
	if s.PublicKey == nil {
		return []string{}
	}
	return []string{s.PublicKey.Hex()}
}

// NetVersion is the decimal form of ChainID.
func (s State) NetVersion() string {
	chainID, err := hexutil.DecodeUint64(s.ChainID)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(chainID, 10)
}

func (p *Provider) State() State {
	return *p.state.Load()
}

func (p *Provider) setState(next State) {
	if next.PublicKey != nil {
		address := *next.PublicKey
		next.PublicKey = &address
	}
	p.state.Store(&next)
}
