package connector

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/services/connector/dispatcher"
)

// API is the wallet UI surface, served in the "connector" namespace.
type API struct {
	s *Service
}

func NewAPI(s *Service) *API {
	return &API{s: s}
}

// PendingRequests lists requests waiting for a decision, oldest first.
func (api *API) PendingRequests() []dispatcher.PendingItem {
	return api.s.dispatcher.Pending()
}

func (api *API) Confirm(ctx context.Context, args dispatcher.ConfirmArgs) error {
	return api.s.dispatcher.Confirm(ctx, args)
}

func (api *API) Reject(ctx context.Context, requestID string) error {
	return api.s.dispatcher.Reject(ctx, requestID)
}

// SwitchChain moves a connected tab to another chain.
func (api *API) SwitchChain(ctx context.Context, tabID int, chainID hexutil.Uint64) error {
	return api.s.dispatcher.SwitchChain(ctx, tabID, uint64(chainID))
}

// Disconnect revokes the permissions of a tab.
func (api *API) Disconnect(ctx context.Context, tabID int) error {
	return api.s.dispatcher.Disconnect(ctx, tabID)
}

func (api *API) Session(tabID int) (*dispatcher.Session, error) {
	session, ok := api.s.dispatcher.Session(tabID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", dispatcher.ErrSessionNotFound, tabID)
	}
	return &session, nil
}

// Networks lists the chains dApps may switch to.
func (api *API) Networks() ([]*params.Network, error) {
	return api.s.nm.GetActiveNetworks()
}
