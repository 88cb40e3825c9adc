package main

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/status-im/connector-bridge/logutils"
)

const (
	ConfigFileFlag = "config"
	AddressFlag    = "address"
	KeyFlag        = "key"
	KeyStoreFlag   = "keystore"
	AccountFlag    = "account"
	PasswordFlag   = "password"
	MetricsFlag    = "metrics"
	DebugLevelFlag = "debug"

	TabFlag      = "tab"
	OriginFlag   = "origin"
	MethodFlag   = "method"
	ParamsFlag   = "params"
	TimeoutFlag  = "timeout"
	NoEnableFlag = "no-enable"
)

func main() {
	app := &cli.App{
		Name:  "connector-backend",
		Usage: "Bridge dApp pages to a local wallet",
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Run the background process serving tabs and the wallet UI",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    ConfigFileFlag,
						Aliases: []string{"c"},
						Usage:   "JSON config file, defaults are used when empty",
					},
					&cli.StringFlag{
						Name:    AddressFlag,
						Aliases: []string{"a"},
						Usage:   "host:port to listen on, overrides the config",
					},
					&cli.StringSliceFlag{
						Name:  KeyFlag,
						Usage: "Hex private key to sign with, may be repeated",
					},
					&cli.StringFlag{
						Name:  KeyStoreFlag,
						Usage: "Keystore directory, overrides the config",
					},
					&cli.StringFlag{
						Name:  AccountFlag,
						Usage: "Keystore account to unlock",
					},
					&cli.StringFlag{
						Name:    PasswordFlag,
						Usage:   "Password of the keystore account",
						EnvVars: []string{"CONNECTOR_PASSWORD"},
					},
					&cli.BoolFlag{
						Name:  MetricsFlag,
						Usage: "Serve /metrics and /health",
					},
					&cli.BoolFlag{
						Name:  DebugLevelFlag,
						Usage: "Log at debug level",
					},
				},
				Action: serve,
			},
			{
				Name:    "request",
				Aliases: []string{"r"},
				Usage:   "Send one provider request the way a dApp page would",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    AddressFlag,
						Aliases: []string{"a"},
						Value:   "127.0.0.1:8545",
						Usage:   "host:port of the background process",
					},
					&cli.IntFlag{
						Name:  TabFlag,
						Value: 1,
						Usage: "Tab id the page pretends to live in",
					},
					&cli.StringFlag{
						Name:  OriginFlag,
						Value: "http://localhost",
						Usage: "Origin of the pretended page",
					},
					&cli.StringFlag{
						Name:    MethodFlag,
						Aliases: []string{"m"},
						Value:   "eth_requestAccounts",
						Usage:   "Provider method",
					},
					&cli.StringFlag{
						Name:    ParamsFlag,
						Aliases: []string{"p"},
						Usage:   "Method params as JSON",
					},
					&cli.DurationFlag{
						Name:  TimeoutFlag,
						Usage: "How long to wait for the wallet",
					},
					&cli.BoolFlag{
						Name:  NoEnableFlag,
						Usage: "Do not request accounts before the method",
					},
					&cli.BoolFlag{
						Name:  DebugLevelFlag,
						Usage: "Log at debug level",
					},
				},
				Action: request,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logutils.ZapLogger().Fatal("connector-backend failed", zap.Error(err))
	}
}

func setupLogger(settings logutils.LogSettings, debug bool) (*zap.Logger, error) {
	if debug {
		settings.Enabled = true
		settings.Level = "DEBUG"
	}
	if err := logutils.OverrideRootLogWithConfig(settings); err != nil {
		return nil, err
	}
	return logutils.ZapLogger(), nil
}
