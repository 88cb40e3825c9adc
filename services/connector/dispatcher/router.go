//go:generate mockgen -package=mock_dispatcher -source=router.go -destination=mock/router.go

package dispatcher

import (
	"context"

	"github.com/status-im/connector-bridge/services/connector/channel"
)

// BackgroundSource is the source stamped on messages the background process sends.
const BackgroundSource = "background"

// TabRouter delivers messages to the content script of one tab.
type TabRouter interface {
	SendToTab(ctx context.Context, tabID int, msg channel.Message) error
}
