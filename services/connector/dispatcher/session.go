package dispatcher

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"
)

// Session is what a tab was granted: the shared account and the selected chain.
type Session struct {
	Origin string `json:"origin"`
	// Account is nil until a GetAccount request was confirmed.
	Account *common.Address `json:"account,omitempty"`
	// ChainID is 0 until a chain was selected for the tab.
	ChainID uint64 `json:"chainId"`
}

type sessionStore struct {
	cache *ttlcache.Cache[int, Session]
}

func newSessionStore(ttl time.Duration, logger *zap.Logger) *sessionStore {
	cache := ttlcache.New[int, Session](ttlcache.WithTTL[int, Session](ttl))
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[int, Session]) {
		if reason == ttlcache.EvictionReasonExpired {
			logger.Debug("session expired", zap.Int("tabId", item.Key()), zap.String("origin", item.Value().Origin))
		}
	})
	return &sessionStore{cache: cache}
}

func (s *sessionStore) get(tabID int) (Session, bool) {
	item := s.cache.Get(tabID)
	if item == nil {
		return Session{}, false
	}
	return item.Value(), true
}

// getOrNew returns the session of tabID, or an empty one for origin.
func (s *sessionStore) getOrNew(tabID int, origin string) Session {
	session, ok := s.get(tabID)
	if !ok || session.Origin != origin {
		return Session{Origin: origin}
	}
	return session
}

func (s *sessionStore) set(tabID int, session Session) {
	if session.Account != nil {
		address := *session.Account
		session.Account = &address
	}
	s.cache.Set(tabID, session, ttlcache.DefaultTTL)
}

func (s *sessionStore) delete(tabID int) {
	s.cache.Delete(tabID)
}
