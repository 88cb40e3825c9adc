package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/status-im/connector-bridge/logutils"
	"github.com/status-im/connector-bridge/params"
	"github.com/status-im/connector-bridge/services/connector/channel"
	"github.com/status-im/connector-bridge/services/connector/provider"
	"github.com/status-im/connector-bridge/services/connector/relay"
)

const pageWindowID = "connector-backend-cli"

// request plays page and content script of a single tab against a running background.
func request(cCtx *cli.Context) error {
	logger, err := setupLogger(logutils.LogSettings{Enabled: true, Level: "WARN"}, cCtx.Bool(DebugLevelFlag))
	if err != nil {
		return err
	}

	var methodParams interface{}
	if raw := cCtx.String(ParamsFlag); raw != "" {
		if err := json.Unmarshal([]byte(raw), &methodParams); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
	}

	query := url.Values{}
	query.Set("tab", strconv.Itoa(cCtx.Int(TabFlag)))
	query.Set("origin", cCtx.String(OriginFlag))
	extensionURL := url.URL{
		Scheme:   "ws",
		Host:     cCtx.String(AddressFlag),
		Path:     "/extension",
		RawQuery: query.Encode(),
	}

	ctx := cCtx.Context
	extension, err := channel.DialWebSocket(ctx, extensionURL.String(), nil, pageWindowID, logger)
	if err != nil {
		return err
	}
	defer extension.Close()

	page := channel.NewWindow(pageWindowID)
	defer page.Close()

	timeout := cCtx.Duration(TimeoutFlag)
	if timeout == 0 {
		timeout = params.DefaultRequestTimeout
	}
	p := provider.New(provider.Config{
		Channel: page,
		Source:  pageWindowID,
		Timeout: timeout,
		Logger:  logger,
	})
	defer p.Close()

	r := relay.New(page, pageWindowID, extension, p, logger)
	r.Start()
	defer r.Stop()

	if !cCtx.Bool(NoEnableFlag) {
		accounts, err := p.Enable(ctx)
		if err != nil {
			return err
		}
		logger.Info("connected", zap.Any("accounts", accounts))
	}

	result, err := p.Request(ctx, provider.RequestArguments{
		Method: cCtx.String(MethodFlag),
		Params: methodParams,
	})
	if err != nil {
		return printJSON(provider.ToProviderError(err))
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
