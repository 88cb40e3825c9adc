// Package signal implements the event-based notification interface between the
// connector backend and the wallet UI. Events are JSON envelopes handed to a
// registered handler; the signals websocket server is the usual consumer.
package signal
