// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/clnplugin/host/internal/config"
	"github.com/clnplugin/host/internal/logging"
	"github.com/clnplugin/host/internal/metricsserver"
	"github.com/clnplugin/host/internal/rpccore"
	"github.com/clnplugin/host/pkg/pluginhost"
	"github.com/spf13/cobra"
)

var configFile string

const shutdownTimeout = 5 * time.Second

// NewRootCmd creates the root command for the echoplugin binary.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echoplugin",
		Short: "echoplugin is an example Lightning Network plugin",
		Long: `echoplugin demonstrates pkg/pluginhost: an "echo" command, an
"echoplugin-peercount" command, a "connect" notification subscription,
and a Prometheus metrics endpoint.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewManifestCmd())

	return cmd
}

// NewRunCmd creates the "run" subcommand, the plugin's actual
// entrypoint when launched by the node. Its flags are the ambient,
// operator-facing settings internal/config.Load layers over the
// compiled-in defaults and an optional config file; the flag names
// must match the Config struct's koanf tags exactly, since
// posflag.Provider keys on the flag's own name rather than translating
// dashes to underscores.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the plugin, speaking JSON-RPC over stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlugin(cmd)
		},
	}
	cmd.Flags().String("log_level", "", "log level (debug, info, warn, error); loaded into the config but not applied, logging always runs at debug level")
	cmd.Flags().String("log_format", "", "log format (json or text)")
	cmd.Flags().String("metrics_listen", "", "metrics HTTP listen address (empty disables it)")
	return cmd
}

// NewManifestCmd creates the "manifest" subcommand, which prints the
// getmanifest reply the plugin would send, without running the event
// loop or requiring a node on the other end of stdin.
func NewManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the plugin's manifest and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rcfg := &runtimeConfig{logger: logging.Setup("echoplugin", version, "text", os.Stderr)}
			host, err := pluginhost.BuildHost(newServeConfig(rcfg))
			if err != nil {
				return err
			}
			manifest, err := host.ManifestJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(manifest))
			return nil
		},
	}
}

func runPlugin(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("echoplugin", version, cfg.LogFormat)
	logger := logging.Setup("echoplugin", version, cfg.LogFormat, os.Stderr)

	metrics := rpccore.NewMetrics()
	if cfg.MetricsListen == "" {
		return pluginhost.Serve(newServeConfig(&runtimeConfig{logger: logger, metrics: metrics}))
	}

	srv := metricsserver.New(cfg.MetricsListen)
	if err := rpccore.RegisterMetrics(srv.Registry(), metrics); err != nil {
		return err
	}
	errCh, err := srv.Start()
	if err != nil {
		logger.Warn("metrics server did not start", "error", err)
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Stop(ctx)
		}()
		go func() {
			if serveErr, ok := <-errCh; ok {
				logger.Error("metrics server failed", "error", serveErr)
			}
		}()
	}

	rcfg := &runtimeConfig{logger: logger, metrics: metrics}
	return pluginhost.Serve(newServeConfig(rcfg))
}
