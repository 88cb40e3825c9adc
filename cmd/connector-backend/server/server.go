package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/status-im/connector-bridge/common"
	"github.com/status-im/connector-bridge/metrics"
	"github.com/status-im/connector-bridge/services/connector"
	"github.com/status-im/connector-bridge/signal"
)

const signalWriteTimeout = 5 * time.Second

// Server exposes the connector over one listener:
//
//	/extension  content script websockets, one per tab
//	/signals    wallet UI signal stream
//	/           JSON-RPC API of the wallet UI
//	/metrics    prometheus, when enabled
type Server struct {
	service        *connector.Service
	metricsEnabled bool
	logger         *zap.Logger

	server   *http.Server
	listener net.Listener
	rpc      *gethrpc.Server
	address  string

	lock        sync.Mutex
	connections map[*websocket.Conn]struct{}
	upgrader    websocket.Upgrader
}

func NewServer(service *connector.Service, metricsEnabled bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service:        service,
		metricsEnabled: metricsEnabled,
		logger:         logger.Named("server"),
		connections:    make(map[*websocket.Conn]struct{}, 1),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return common.IsExtensionOrigin(r.Header.Get("Origin"))
			},
		},
	}
}

func (s *Server) Address() string {
	return s.address
}

// Setup routes every signal to the connected wallet UIs.
func (s *Server) Setup() {
	signal.SetMobileSignalHandler(s.signalHandler)
}

func (s *Server) signalHandler(data []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for connection := range s.connections {
		_ = connection.SetWriteDeadline(time.Now().Add(signalWriteTimeout))
		err := connection.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			s.logger.Error("failed to write signal", zap.Error(err))
		}
	}
}

func (s *Server) Listen(address string) error {
	if s.server != nil {
		return errors.New("server already started")
	}

	s.rpc = gethrpc.NewServer()
	for _, api := range s.service.APIs() {
		if err := s.rpc.RegisterName(api.Namespace, api.Service); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/extension", s.service.Hub())
	mux.HandleFunc("/signals", s.signals)
	if s.metricsEnabled {
		metrics.Register(mux, gethmetrics.DefaultRegistry)
	}
	mux.Handle("/", s.rpc)

	s.server = &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var err error
	s.listener, err = net.Listen("tcp", address)
	if err != nil {
		s.server = nil
		return err
	}
	s.address = s.listener.Addr().String()
	return nil
}

func (s *Server) Serve() {
	defer common.LogOnPanic()
	err := s.server.Serve(s.listener)
	if !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("server closed with error", zap.Error(err))
	}
}

func (s *Server) Stop(ctx context.Context) error {
	var err error

	s.lock.Lock()
	for connection := range s.connections {
		err = multierr.Append(err, connection.Close())
		delete(s.connections, connection)
	}
	s.lock.Unlock()

	if s.server != nil {
		err = multierr.Append(err, s.server.Shutdown(ctx))
	}
	if s.rpc != nil {
		s.rpc.Stop()
	}

	s.server = nil
	s.address = ""
	return err
}

func (s *Server) signals(w http.ResponseWriter, r *http.Request) {
	connection, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	s.lock.Lock()
	s.connections[connection] = struct{}{}
	s.lock.Unlock()

	go s.drain(connection)
}

// drain reads until the UI goes away so closed connections leave the fan-out.
func (s *Server) drain(connection *websocket.Conn) {
	defer common.LogOnPanic()
	for {
		if _, _, err := connection.ReadMessage(); err != nil {
			break
		}
	}

	s.lock.Lock()
	delete(s.connections, connection)
	s.lock.Unlock()
	_ = connection.Close()
}
