package connector

import (
	"context"
	"sync"

	"go.uber.org/zap"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/status-im/connector-bridge/account"
	"github.com/status-im/connector-bridge/common"
	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/rpc"
	"github.com/status-im/connector-bridge/rpc/network"
	"github.com/status-im/connector-bridge/services/connector/dispatcher"
	"github.com/status-im/connector-bridge/services/connector/hub"
	"github.com/status-im/connector-bridge/transactions"
)

func NewService(config *params.Config, signer account.Signer, dial rpc.Dialer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	nm := network.NewManager(config.Networks)
	clients := rpc.NewClient(nm, dial, logger)
	h := hub.New(config.RateLimit, logger)

	transactor := transactions.NewTransactor(logger)
	d := dispatcher.New(dispatcher.Config{
		Router:     h,
		Signer:     signer,
		Networks:   nm,
		Clients:    clients,
		Transactor: transactor,
		SessionTTL: config.SessionTTL.Duration,
		Logger:     logger,
	})
	h.SetEnqueuer(d)

	return &Service{
		nm:         nm,
		clients:    clients,
		hub:        h,
		dispatcher: d,
		logger:     logger.Named("connector"),
	}
}

// Service is the background side of the connector: tab connections, the approval
// queue and the wallet operations behind it.
type Service struct {
	nm         *network.Manager
	clients    *rpc.Client
	hub        *hub.Hub
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer common.LogOnPanic()
		defer s.wg.Done()
		s.dispatcher.Run(ctx)
	}()
	s.logger.Info("connector service started")
	return nil
}

func (s *Service) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	err := s.hub.Close()
	s.clients.Close()
	s.logger.Info("connector service stopped", zap.Error(err))
	return err
}

// Hub serves the content script websockets.
func (s *Service) Hub() *hub.Hub {
	return s.hub
}

func (s *Service) APIs() []gethrpc.API {
	return []gethrpc.API{
		{
			Namespace: "connector",
			Version:   "0.1.0",
			Service:   NewAPI(s),
		},
	}
}
