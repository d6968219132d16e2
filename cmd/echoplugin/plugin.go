// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/clnplugin/host/internal/rpccore"
	"github.com/clnplugin/host/pkg/pluginhost"
)

const invalidParamsCode = -32602

// runtimeConfig bundles the process-level dependencies a handler needs
// that aren't part of any single JSON-RPC call.
type runtimeConfig struct {
	logger  *slog.Logger
	metrics *rpccore.Metrics
}

// newServeConfig builds the echo plugin's complete wiring: two commands,
// one notification subscription, and one option. cfg.metrics may be
// nil, in which case pluginhost.Serve runs without recording any.
func newServeConfig(cfg *runtimeConfig) *pluginhost.ServeConfig {
	return &pluginhost.ServeConfig{
		Name:        "echoplugin",
		Version:     version,
		Restartable: true,

		Options: []pluginhost.Option{
			{
				Name:        "echoplugin-prefix",
				Type:        rpccore.OptionTypeString,
				Description: "Prefix prepended to every echoed message.",
				Default:     "",
			},
		},

		Commands: []pluginhost.Command{
			{
				Name:        "echo",
				Usage:       "message",
				Description: "Echo message back to the caller.",
				Handler:     handleEcho(),
			},
			{
				Name:        "echoplugin-peercount",
				Usage:       "",
				Description: "Report the node's current peer count via listpeers.",
				Handler:     handlePeerCount(),
			},
		},

		Subscriptions: []pluginhost.Subscription{
			{
				Topic:   "connect",
				Handler: handleConnect(),
			},
		},

		Notifies: []string{"echoplugin_notice"},

		OnInit: func(h *rpccore.Host, config rpccore.View) error {
			prefix, _ := h.OptionValue("echoplugin-prefix")
			h.Infof("echoplugin initialized, prefix=%q", prefix)
			return nil
		},

		Logger:  cfg.logger,
		Metrics: cfg.metrics,
	}
}

func handleEcho() pluginhost.Handler {
	return func(ctx *pluginhost.Context) pluginhost.Result {
		if ctx.UsageOnly() {
			return ctx.SetUsage("message")
		}
		msg, err := ctx.Params.String("message")
		if err != nil {
			return ctx.Errorf(invalidParamsCode, "missing required parameter: message")
		}
		prefix, _ := ctx.OptionValue("echoplugin-prefix")
		return ctx.Success(map[string]string{
			"message": fmt.Sprintf("%s%s", prefix, msg),
		})
	}
}

// handlePeerCount exercises the outbound-correlation path end to end:
// it issues listpeers over the RPC socket and forwards the node's
// reply (or error) back to the original caller once it arrives, rather
// than answering synchronously.
func handlePeerCount() pluginhost.Handler {
	return func(ctx *pluginhost.Context) pluginhost.Result {
		if ctx.UsageOnly() {
			return ctx.SetUsage("")
		}
		result, err := ctx.SendOutreq("listpeers", map[string]any{},
			func(cmd *rpccore.Command, reply rpccore.View) rpccore.CommandResult {
				return rpccore.ForwardResult(cmd, reply)
			},
			func(cmd *rpccore.Command, reply rpccore.View) rpccore.CommandResult {
				return rpccore.ForwardError(cmd, reply)
			},
		)
		if err != nil {
			return ctx.Errorf(invalidParamsCode, err.Error())
		}
		return result
	}
}

func handleConnect() pluginhost.Handler {
	return func(ctx *pluginhost.Context) pluginhost.Result {
		if ctx.UsageOnly() {
			return ctx.SetUsage("")
		}
		return ctx.Success(nil)
	}
}
