package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"

	"github.com/status-im/connector-bridge/account"
	"github.com/status-im/connector-bridge/cmd/connector-backend/server"
	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/services/connector"
)

const shutdownTimeout = 10 * time.Second

func serve(cCtx *cli.Context) error {
	config, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger, err := setupLogger(config.Log, cCtx.Bool(DebugLevelFlag))
	if err != nil {
		return err
	}

	signer, err := makeSigner(cCtx, config)
	if err != nil {
		return err
	}
	logger.Info("signer ready", zap.Int("accounts", len(signer.Accounts())))

	service := connector.NewService(config, signer, nil, logger)
	if err := service.Start(); err != nil {
		return err
	}

	srv := server.NewServer(service, config.MetricsEnabled, logger)
	srv.Setup()
	if err := srv.Listen(config.ListenAddr); err != nil {
		return multierr.Append(err, service.Stop())
	}
	logger.Info("server started", zap.String("address", srv.Address()))
	go srv.Serve()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-cCtx.Done():
	}
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Combine(srv.Stop(ctx), service.Stop())
}

func loadConfig(cCtx *cli.Context) (*params.Config, error) {
	config := params.NewConfigWithDefaults()
	if path := cCtx.String(ConfigFileFlag); path != "" {
		var err error
		config, err = params.LoadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
	}

	if address := cCtx.String(AddressFlag); address != "" {
		config.ListenAddr = address
	}
	if keyStore := cCtx.String(KeyStoreFlag); keyStore != "" {
		config.KeyStoreDir = keyStore
	}
	if cCtx.Bool(MetricsFlag) {
		config.MetricsEnabled = true
	}
	return config, config.Validate()
}

// makeSigner prefers raw keys given on the command line over the keystore.
func makeSigner(cCtx *cli.Context, config *params.Config) (account.Signer, error) {
	if keys := cCtx.StringSlice(KeyFlag); len(keys) > 0 {
		return account.NewKeySignerFromHex(keys...)
	}

	if config.KeyStoreDir == "" {
		return nil, errors.New("either --key or a keystore is required")
	}
	signer, err := account.NewKeyStoreSigner(config.KeyStoreDir)
	if err != nil {
		return nil, err
	}
	if address := cCtx.String(AccountFlag); address != "" {
		if !common.IsHexAddress(address) {
			return nil, errors.New("invalid account address")
		}
		if err := signer.Unlock(common.HexToAddress(address), cCtx.String(PasswordFlag)); err != nil {
			return nil, err
		}
	}
	return signer, nil
}
