package signal

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/status-im/connector-bridge/logutils"
)

// Envelope is a general signal sent upward to the wallet UI.
type Envelope struct {
	Type  string      `json:"type"`
	Event interface{} `json:"event"`
}

// NewEnvelope creates new envlope of given type and event payload.
func NewEnvelope(typ string, event interface{}) *Envelope {
	return &Envelope{
		Type:  typ,
		Event: event,
	}
}

// MobileSignalHandler receives every marshalled envelope.
type MobileSignalHandler func([]byte)

var (
	mobileSignalHandler MobileSignalHandler
	handlerMu           sync.RWMutex
)

// SetMobileSignalHandler installs the handler that receives all signals.
func SetMobileSignalHandler(handler MobileSignalHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	mobileSignalHandler = handler
}

// ResetMobileSignalHandler removes the installed handler, signals are dropped afterwards.
func ResetMobileSignalHandler() {
	SetMobileSignalHandler(nil)
}

// send marshals the event and hands it to the installed handler.
func send(typ string, event interface{}) {
	signal := NewEnvelope(typ, event)
	data, err := json.Marshal(&signal)
	if err != nil {
		logutils.ZapLogger().Error("marshalling signal", zap.String("type", typ), zap.Error(err))
		return
	}

	handlerMu.RLock()
	handler := mobileSignalHandler
	handlerMu.RUnlock()

	if handler == nil {
		logutils.ZapLogger().Debug("no signal handler", zap.String("type", typ))
		return
	}
	handler(data)
}
