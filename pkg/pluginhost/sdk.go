// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

// Package pluginhost is the public SDK for building Lightning Network
// plugins on top of internal/rpccore. A plugin process talks JSON-RPC
// 2.0 with its node over stdin/stdout, plus a Unix-domain socket back
// into the node for RPC callbacks; this package hides all of that
// behind a manifest-driven Serve entrypoint.
//
// Example usage:
//
//	package main
//
//	import "github.com/clnplugin/host/pkg/pluginhost"
//
//	func main() {
//		pluginhost.Serve(&pluginhost.ServeConfig{
//			Name:    "echo",
//			Version: "0.1.0",
//			Commands: []pluginhost.Command{
//				{
//					Name:        "echo",
//					Usage:       "message",
//					Description: "Echo message back to the caller.",
//					Handler: func(cmd *pluginhost.Context) pluginhost.Result {
//						if cmd.UsageOnly() {
//							return cmd.SetUsage("message")
//						}
//						msg, _ := cmd.Params.String("message")
//						return cmd.Success(map[string]string{"message": msg})
//					},
//				},
//			},
//		})
//	}
package pluginhost

import (
	"io"
	"log/slog"
	"os"

	"github.com/clnplugin/host/internal/rpccore"
)

// Context is the handler-facing view of an in-flight command,
// notification, or hook: the underlying rpccore.Command plus the
// parsed params view.
type Context struct {
	cmd    *rpccore.Command
	Params rpccore.View
	host   *rpccore.Host
}

// Result is the value every Handler must return.
type Result = rpccore.CommandResult

// Pending signals the handler has handed off to asynchronous work.
var Pending = rpccore.Pending

// UsageOnly reports whether this call is a startup usage probe.
func (c *Context) UsageOnly() bool { return c.cmd.UsageOnly() }

// SetUsage records this command's usage string during a usage probe
// and finalizes it, the one valid thing a handler may do in that mode.
func (c *Context) SetUsage(usage string) Result {
	rpccore.SetUsage(c.cmd, usage)
	return rpccore.CommandSuccessStr(c.cmd, "")
}

// Success finalizes the command with result.
func (c *Context) Success(result any) Result {
	return rpccore.CommandSuccess(c.cmd, result)
}

// Errorf finalizes the command with a JSON-RPC error response.
func (c *Context) Errorf(code int, msg string) Result {
	return rpccore.CommandDoneErr(c.cmd, code, msg, nil)
}

// OptionValue returns the raw string value init supplied for a
// registered option, or ("", false) if the node did not set it.
func (c *Context) OptionValue(name string) (string, bool) {
	return c.host.OptionValue(name)
}

// SendOutreq issues an outbound RPC to the node on this context's
// command and registers callbacks for the reply.
func (c *Context) SendOutreq(method string, params any, onOK, onError rpccore.ReplyCallback) (Result, error) {
	return c.host.SendOutreq(c.cmd, method, params, onOK, onError)
}

// Handler handles one command, hook, or notification.
type Handler func(ctx *Context) Result

func adapt(host *rpccore.Host, h Handler) rpccore.CommandHandler {
	return func(cmd *rpccore.Command, params rpccore.View) rpccore.CommandResult {
		return h(&Context{cmd: cmd, Params: params, host: host})
	}
}

// Option describes one node-configurable option, mirroring
// rpccore.OptionSpec without requiring plugin authors to import the
// internal package.
type Option struct {
	Name        string
	Type        rpccore.OptionType
	Description string
	Default     string
	Dynamic     bool
}

// Command describes one JSON-RPC method the plugin implements.
type Command struct {
	Name            string
	Usage           string
	Description     string
	LongDescription string
	Handler         Handler
}

// Hook describes a node-side hook this plugin answers.
type Hook struct {
	Name    string
	Handler Handler
}

// Subscription describes a notification topic this plugin listens for.
// Topic may be a literal method name or a glob pattern (e.g. "channel_*").
type Subscription struct {
	Topic   string
	Handler Handler
}

// ServeConfig describes a complete plugin: its options, commands,
// hooks, subscriptions, and lifecycle hooks.
type ServeConfig struct {
	Name    string
	Version string

	Options       []Option
	Commands      []Command
	Hooks         []Hook
	Subscriptions []Subscription
	Notifies      []string

	Restartable bool

	// OnInit runs once init's configuration has been validated and
	// applied, before the {} reply goes back to the node.
	OnInit func(h *rpccore.Host, config rpccore.View) error

	// Logger receives a local copy of every line logged through the
	// host's Debugf/Infof/Warnf/Errorf, plus fatal errors; it is
	// distinct from the node-facing log notification sink every Context
	// can also reach via the host. A nil Logger defaults to
	// slog.Default().
	Logger *slog.Logger

	// Stdin/Stdout override the transport, used by tests; a real
	// plugin binary leaves these nil to use os.Stdin/os.Stdout.
	Stdin  *os.File
	Stdout *os.File

	Metrics *rpccore.Metrics
}

// BuildHost constructs and registers a Host from cfg without running
// its event loop, for tooling (e.g. a "manifest" CLI subcommand) that
// needs the wired plugin shape but must not block on stdin.
func BuildHost(cfg *ServeConfig) (*rpccore.Host, error) {
	stdin := io.Reader(os.Stdin)
	stdout := io.Writer(os.Stdout)
	if cfg.Stdin != nil {
		stdin = cfg.Stdin
	}
	if cfg.Stdout != nil {
		stdout = cfg.Stdout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	host := rpccore.NewHost(stdin, stdout, logger)

	if cfg.Metrics != nil {
		host.SetMetrics(cfg.Metrics)
	}
	if cfg.Restartable {
		host.SetRestartability(rpccore.Restartable)
	} else {
		host.SetRestartability(rpccore.NotRestartable)
	}
	if cfg.OnInit != nil {
		host.SetInitCallback(cfg.OnInit)
	}

	for _, o := range cfg.Options {
		host.RegisterOption(rpccore.OptionSpec{
			Name:        o.Name,
			Type:        o.Type,
			Description: o.Description,
			Default:     o.Default,
			Dynamic:     o.Dynamic,
		})
	}
	for _, c := range cfg.Commands {
		host.RegisterCommand(rpccore.CommandSpec{
			Name:            c.Name,
			Usage:           c.Usage,
			Description:     c.Description,
			LongDescription: c.LongDescription,
			Handler:         adapt(host, c.Handler),
		})
	}
	for _, hk := range cfg.Hooks {
		host.RegisterHook(rpccore.HookSpec{Name: hk.Name, Handler: adapt(host, hk.Handler)})
	}
	for _, s := range cfg.Subscriptions {
		if err := host.Subscribe(s.Topic, adapt(host, s.Handler)); err != nil {
			return nil, err
		}
	}
	for _, topic := range cfg.Notifies {
		host.RegisterNotificationTopic(topic)
	}

	return host, nil
}

// Serve builds a Host from cfg, registers every handler, and runs the
// event loop until the node disconnects. It does not return in a real
// plugin binary: Run exits the process itself on both the clean and
// fatal paths (§6).
func Serve(cfg *ServeConfig) error {
	host, err := BuildHost(cfg)
	if err != nil {
		return err
	}
	return host.Run()
}
