package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/status-im/connector-bridge/metrics"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/envelope"
	"github.com/status-im/connector-bridge/services/connector/provider"
)

const windowID = "window-1"

// countingChannel counts subscriptions made on a window.
type countingChannel struct {
	*channel.Window

	mu   sync.Mutex
	subs int
}

func (c *countingChannel) Subscribe(ch chan<- channel.Message) event.Subscription {
	c.mu.Lock()
	c.subs++
	c.mu.Unlock()
	return c.Window.Subscribe(ch)
}

func (c *countingChannel) subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs
}

type recordingTarget struct {
	mu          sync.Mutex
	chains      []string
	disconnects int
}

func (t *recordingTarget) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnects++
}

func (t *recordingTarget) SwitchChain(chainID, providerURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chains = append(t.chains, chainID+" "+providerURL)
}

func collect(t *testing.T, ch channel.Channel) <-chan channel.Message {
	messages := make(chan channel.Message, 16)
	sub := ch.Subscribe(messages)
	t.Cleanup(sub.Unsubscribe)
	return messages
}

func post(t *testing.T, ch channel.Channel, source string, payload interface{}) {
	msg, err := channel.NewMessage(source, payload)
	require.NoError(t, err)
	require.NoError(t, ch.Post(context.Background(), msg))
}

func expectNone(t *testing.T, messages <-chan channel.Message, match func(channel.Message) bool) {
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case msg := <-messages:
			require.False(t, match(msg), "unexpected message %s", msg.Data)
		case <-deadline:
			return
		}
	}
}

func expectOne(t *testing.T, messages <-chan channel.Message, match func(channel.Message) bool) channel.Message {
	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-messages:
			if match(msg) {
				return msg
			}
		case <-deadline:
			require.FailNow(t, "message not delivered")
		}
	}
}

func setup(t *testing.T, target NotificationTarget) (*channel.Window, *countingChannel, *Relay) {
	page := channel.NewWindow(windowID)
	extension := &countingChannel{Window: channel.NewWindow("extension")}
	t.Cleanup(page.Close)
	t.Cleanup(extension.Close)

	r := New(page, windowID, extension, target, nil)
	r.Start()
	t.Cleanup(r.Stop)
	return page, extension, r
}

func TestForwardsOwnRequests(t *testing.T) {
	page, extension, _ := setup(t, nil)
	received := collect(t, extension)

	req := envelope.NewSignMessageRequest("0x00")
	post(t, page, windowID, req)

	msg := expectOne(t, received, func(msg channel.Message) bool { return envelope.IsRequestEnvelope(msg.Data) })
	require.Equal(t, windowID, msg.Source)
	forwarded, err := envelope.DecodeRequest(msg.Data)
	require.NoError(t, err)
	require.Equal(t, req.RequestID, forwarded.RequestID)
	require.Equal(t, "0x00", forwarded.MessageHex)
}

func TestDropsForeignAndNonRequestMessages(t *testing.T) {
	page, extension, _ := setup(t, nil)
	received := collect(t, extension)

	post(t, page, "window-2", envelope.NewRequest(envelope.GetAccount))
	post(t, page, windowID, map[string]interface{}{"type": "Bogus", "requestId": "x"})
	post(t, page, windowID, envelope.NewResponse(envelope.AccountResponse, "x"))
	post(t, page, windowID, "not an envelope")

	expectNone(t, received, func(channel.Message) bool { return true })
}

func TestOwnResponsesAreNotCountedAsDrops(t *testing.T) {
	page, extension, _ := setup(t, nil)
	received := collect(t, extension)
	pageMessages := collect(t, page)

	dropped := testutil.ToFloat64(metrics.DroppedMessages(dropNotRequest))

	post(t, extension, "extension", envelope.NewRejection("abc"))
	expectOne(t, pageMessages, func(msg channel.Message) bool { return envelope.IsResponseEnvelope(msg.Data) })

	// a page request posted afterwards is handled after the echo of the response
	req := envelope.NewRequest(envelope.GetAccount)
	post(t, page, windowID, req)
	expectOne(t, received, func(msg channel.Message) bool { return envelope.IsRequestEnvelope(msg.Data) })

	require.Equal(t, dropped, testutil.ToFloat64(metrics.DroppedMessages(dropNotRequest)))

	post(t, page, windowID, "not an envelope")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.DroppedMessages(dropNotRequest)) == dropped+1
	}, time.Second, 10*time.Millisecond)
}

func TestForwardsResponsesToPage(t *testing.T) {
	page, extension, _ := setup(t, nil)
	received := collect(t, page)

	post(t, extension, "extension", envelope.NewRejection("abc"))
	post(t, extension, "extension", map[string]interface{}{"type": "Unknown", "requestId": "abc"})

	msg := expectOne(t, received, func(msg channel.Message) bool { return envelope.IsResponseEnvelope(msg.Data) })
	id, ok := envelope.RequestID(msg.Data)
	require.True(t, ok)
	require.Equal(t, "abc", id)

	expectNone(t, received, func(msg channel.Message) bool {
		tag, _ := envelope.Tag(msg.Data)
		return tag == "Unknown"
	})
}

func TestAppliesNotifications(t *testing.T) {
	target := &recordingTarget{}
	_, extension, _ := setup(t, target)

	post(t, extension, "extension", envelope.Notification{Type: envelope.ChainSwitched, ChainID: "0x5", ProviderURL: "https://goerli.example"})
	post(t, extension, "extension", envelope.Notification{Type: envelope.Disconnected})

	require.Eventually(t, func() bool {
		target.mu.Lock()
		defer target.mu.Unlock()
		return target.disconnects == 1 && len(target.chains) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"0x5 https://goerli.example"}, target.chains)
}

func TestSubscribesToExtensionOnce(t *testing.T) {
	_, extension, r := setup(t, nil)

	r.Start()
	r.listenExtension()
	require.Equal(t, 1, extension.subscriptions())
}

func TestProviderRoundTripThroughRelay(t *testing.T) {
	page := channel.NewWindow(windowID)
	extension := channel.NewWindow("extension")
	defer page.Close()
	defer extension.Close()

	p := provider.New(provider.Config{Channel: page, Source: windowID, Timeout: time.Second, DefaultChainID: "0x1"})
	defer p.Close()

	r := New(page, windowID, extension, p, nil)
	r.Start()
	defer r.Stop()

	address := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	requests := collect(t, extension)
	go func() {
		for msg := range requests {
			if !envelope.IsRequestEnvelope(msg.Data) {
				continue
			}
			req, err := envelope.DecodeRequest(msg.Data)
			if err != nil || req.Type != envelope.GetAccount {
				continue
			}
			resp := envelope.NewResponse(envelope.AccountResponse, req.RequestID)
			resp.AccountAddress = &address
			resp.ChainID = "0x1"
			resp.ProviderURL = "https://mainnet.example"
			out, err := channel.NewMessage("extension", resp)
			if err != nil {
				continue
			}
			_ = extension.Post(context.Background(), out)
		}
	}()

	accounts, err := p.Request(context.Background(), provider.RequestArguments{Method: "eth_requestAccounts"})
	require.NoError(t, err)
	require.Equal(t, []string{address.Hex()}, accounts)

	post(t, extension, "extension", envelope.Notification{Type: envelope.Disconnected})
	require.Eventually(t, func() bool { return p.State().PublicKey == nil }, time.Second, 10*time.Millisecond)
}
