package signal

const (
	EventConnectorDAppRequestAdded      = "connector.dAppRequestAdded"
	EventConnectorDAppRequestResolved   = "connector.dAppRequestResolved"
	EventConnectorDAppPermissionGranted = "connector.dAppPermissionGranted"
	EventConnectorDAppPermissionRevoked = "connector.dAppPermissionRevoked"
	EventConnectorDAppChainIdSwitched   = "connector.dAppChainIdSwitched"
)

// ConnectorDAppRequestSignal is triggered when a page request lands in the approval queue.
type ConnectorDAppRequestSignal struct {
	RequestID   string      `json:"requestId"`
	Type        string      `json:"type"`
	Origin      string      `json:"origin"`
	SenderTabID int         `json:"senderTabId"`
	Params      interface{} `json:"params,omitempty"`
}

// ConnectorDAppRequestResolvedSignal is triggered when a queued request was confirmed or rejected.
type ConnectorDAppRequestResolvedSignal struct {
	RequestID string `json:"requestId"`
	Approved  bool   `json:"approved"`
	Error     string `json:"error,omitempty"`
}

type ConnectorDAppPermissionSignal struct {
	Origin      string `json:"origin"`
	SenderTabID int    `json:"senderTabId"`
	Account     string `json:"account,omitempty"`
	ChainID     string `json:"chainId,omitempty"`
}

type ConnectorDAppChainIdSwitchedSignal struct {
	SenderTabID int    `json:"senderTabId"`
	ChainID     string `json:"chainId"`
}

func SendConnectorDAppRequestAdded(requestID, typ, origin string, senderTabID int, params interface{}) {
	send(EventConnectorDAppRequestAdded, ConnectorDAppRequestSignal{
		RequestID:   requestID,
		Type:        typ,
		Origin:      origin,
		SenderTabID: senderTabID,
		Params:      params,
	})
}

func SendConnectorDAppRequestResolved(requestID string, approved bool, err error) {
	event := ConnectorDAppRequestResolvedSignal{
		RequestID: requestID,
		Approved:  approved,
	}
	if err != nil {
		event.Error = err.Error()
	}
	send(EventConnectorDAppRequestResolved, event)
}

func SendConnectorDAppPermissionGranted(origin string, senderTabID int, account, chainID string) {
	send(EventConnectorDAppPermissionGranted, ConnectorDAppPermissionSignal{
		Origin:      origin,
		SenderTabID: senderTabID,
		Account:     account,
		ChainID:     chainID,
	})
}

func SendConnectorDAppPermissionRevoked(origin string, senderTabID int) {
	send(EventConnectorDAppPermissionRevoked, ConnectorDAppPermissionSignal{
		Origin:      origin,
		SenderTabID: senderTabID,
	})
}

func SendConnectorDAppChainIdSwitched(senderTabID int, chainID string) {
	send(EventConnectorDAppChainIdSwitched, ConnectorDAppChainIdSwitchedSignal{
		SenderTabID: senderTabID,
		ChainID:     chainID,
	})
}
