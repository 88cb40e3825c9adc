package dispatcher

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ethereum/go-ethereum/common"

	"github.com/status-im/connector-bridge/services/connector/envelope"
)

// PendingItem is a request waiting for the user to confirm or reject it.
type PendingItem struct {
	Request *envelope.Request `json:"request"`
	// Account is set once the user picked the account that satisfies the request.
	Account     *common.Address `json:"account,omitempty"`
	SenderTabID int             `json:"senderTabId"`
	Origin      string          `json:"origin"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// pendingQueue keeps items in arrival order. Writes only happen on the dispatcher
// loop; the lock lets readers on other goroutines list the queue.
type pendingQueue struct {
	mu    sync.RWMutex
	items *orderedmap.OrderedMap[string, *PendingItem]
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{items: orderedmap.New[string, *PendingItem]()}
}

// add stores item unless its request id is already queued.
func (q *pendingQueue) add(item *PendingItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, present := q.items.Get(item.Request.RequestID); present {
		return false
	}
	q.items.Set(item.Request.RequestID, item)
	return true
}

func (q *pendingQueue) get(requestID string) (*PendingItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.items.Get(requestID)
}

func (q *pendingQueue) remove(requestID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, present := q.items.Delete(requestID)
	return present
}

func (q *pendingQueue) len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.items.Len()
}

// list returns copies of the queued items, oldest first.
func (q *pendingQueue) list() []PendingItem {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := make([]PendingItem, 0, q.items.Len())
	for pair := q.items.Oldest(); pair != nil; pair = pair.Next() {
		items = append(items, *pair.Value)
	}
	return items
}
