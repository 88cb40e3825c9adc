package chainutils

import (
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/status-im/connector-bridge/params"
)

type NetworkManagerInterface interface {
	GetActiveNetworks() ([]*params.Network, error)
}

var (
	ErrNoActiveNetworks   = errors.New("no active networks available")
	ErrUnsupportedNetwork = errors.New("unsupported network")
)

// GetSupportedChainIDs retrieves the chain IDs from the provided NetworkManager.
func GetSupportedChainIDs(networkManager NetworkManagerInterface) ([]uint64, error) {
	activeNetworks, err := networkManager.GetActiveNetworks()
	if err != nil {
		return nil, err
	}

	if len(activeNetworks) < 1 {
		return nil, ErrNoActiveNetworks
	}

	chainIDs := make([]uint64, len(activeNetworks))
	for i, network := range activeNetworks {
		chainIDs[i] = network.ChainID
	}

	return chainIDs, nil
}

func GetDefaultChainID(networkManager NetworkManagerInterface) (uint64, error) {
	chainIDs, err := GetSupportedChainIDs(networkManager)
	if err != nil {
		return 0, err
	}

	return chainIDs[0], nil
}

// GetHexChainID converts a chain id (10) into its wire form ("0xa").
func GetHexChainID(chainID uint64) string {
	return hexutil.EncodeUint64(chainID)
}

// ParseHexChainID is the inverse of GetHexChainID for the hex form used in envelopes.
func ParseHexChainID(hexStr string) (uint64, error) {
	chainID, err := hexutil.DecodeUint64(hexStr)
	if err != nil {
		return 0, ErrUnsupportedNetwork
	}
	return chainID, nil
}

// FindActiveNetwork resolves a hex chain id to one of the active networks.
func FindActiveNetwork(networkManager NetworkManagerInterface, hexChainID string) (*params.Network, error) {
	chainID, err := ParseHexChainID(hexChainID)
	if err != nil {
		return nil, err
	}
	return FindActiveNetworkByID(networkManager, chainID)
}

// FindActiveNetworkByID returns the active network of chainID.
func FindActiveNetworkByID(networkManager NetworkManagerInterface, chainID uint64) (*params.Network, error) {
	activeNetworks, err := networkManager.GetActiveNetworks()
	if err != nil {
		return nil, err
	}
	for _, network := range activeNetworks {
		if network.ChainID == chainID {
			return network, nil
		}
	}
	return nil, ErrUnsupportedNetwork
}
