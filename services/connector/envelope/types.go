package envelope

// RequestType tags a Request Envelope. The set is closed.
type RequestType string

const (
	Connect         RequestType = "Connect"
	GetAccount      RequestType = "GetAccount"
	ChangeChain     RequestType = "ChangeChain"
	SignMessage     RequestType = "SignMessage"
	SignTypedData   RequestType = "SignTypedData"
	SignTransaction RequestType = "SignTransaction"
	SendTransaction RequestType = "SendTransaction"
)

// ResponseType tags a Response Envelope.
type ResponseType string

const (
	ConnectResponse         ResponseType = "ConnectResponse"
	AccountResponse         ResponseType = "AccountResponse"
	ChainChangeResponse     ResponseType = "ChainChangeResponse"
	SignMessageResponse     ResponseType = "SignMessageResponse"
	SignTypedDataResponse   ResponseType = "SignTypedDataResponse"
	SignTransactionResponse ResponseType = "SignTransactionResponse"
	SendTransactionResponse ResponseType = "SendTransactionResponse"

	// TransactionRejected answers any request the user declined.
	TransactionRejected ResponseType = "TransactionRejected"
)

// NotificationType tags wallet-initiated messages that do not answer a request.
type NotificationType string

const (
	ChainSwitched NotificationType = "ChainSwitched"
	Disconnected  NotificationType = "Disconnected"
)

var expectedResponses = map[RequestType]ResponseType{
	Connect:         ConnectResponse,
	GetAccount:      AccountResponse,
	ChangeChain:     ChainChangeResponse,
	SignMessage:     SignMessageResponse,
	SignTypedData:   SignTypedDataResponse,
	SignTransaction: SignTransactionResponse,
	SendTransaction: SendTransactionResponse,
}

var responseTypes = map[ResponseType]struct{}{
	ConnectResponse:         {},
	AccountResponse:         {},
	ChainChangeResponse:     {},
	SignMessageResponse:     {},
	SignTypedDataResponse:   {},
	SignTransactionResponse: {},
	SendTransactionResponse: {},
	TransactionRejected:     {},
}

// RequestTypes lists every request tag.
func RequestTypes() []RequestType {
	return []RequestType{Connect, GetAccount, ChangeChain, SignMessage, SignTypedData, SignTransaction, SendTransaction}
}

// ResponseTypes lists every response tag, the rejection included.
func ResponseTypes() []ResponseType {
	return []ResponseType{
		ConnectResponse, AccountResponse, ChainChangeResponse, SignMessageResponse,
		SignTypedDataResponse, SignTransactionResponse, SendTransactionResponse, TransactionRejected,
	}
}

func (t RequestType) Valid() bool {
	_, ok := expectedResponses[t]
	return ok
}

func (t ResponseType) Valid() bool {
	_, ok := responseTypes[t]
	return ok
}

func (t NotificationType) Valid() bool {
	return t == ChainSwitched || t == Disconnected
}

// ExpectedResponse returns the success tag that answers a request of type t.
func ExpectedResponse(t RequestType) (ResponseType, bool) {
	response, ok := expectedResponses[t]
	return response, ok
}
