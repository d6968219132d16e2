// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"os"
	"time"

	"github.com/buger/jsonparser"
)

// Dispatch classifies one inbound stdin frame and routes it to the
// right handler for the host's current handshake state. It is the Go
// analog of ld_command_handle: every branch that the original makes
// fatal via plugin_err calls h.fatal here instead of returning an error
// to the caller, since there is no recovering from a protocol violation
// once half of the state machine is untrustworthy.
func (h *Host) Dispatch(raw []byte) {
	view := NewView(raw)

	method, err := view.String("method")
	if err != nil {
		h.fatal(protocolViolation("dispatch_missing_method").Errorf("inbound message has no method"))
		return
	}

	var id *uint64
	if idVal, idType, idErr := view.Member("id"); idErr == nil && idType != jsonparser.Null {
		n, parseErr := jsonparser.ParseInt(idVal)
		if parseErr != nil {
			h.fatal(protocolViolation("dispatch_bad_id", "method", method).Wrap(parseErr))
			return
		}
		u := uint64(n)
		id = &u
	}

	if !view.Has("jsonrpc") {
		h.fatal(protocolViolation("dispatch_missing_jsonrpc", "method", method).Errorf("inbound message has no jsonrpc member"))
		return
	}

	params, _, paramsErr := view.Member("params")
	if paramsErr != nil {
		h.fatal(protocolViolation("dispatch_missing_params", "method", method).Errorf("inbound message has no params"))
		return
	}
	paramsView := NewView(params)

	cmd := &Command{id: id, method: method, host: h}

	switch h.state {
	case stateAwaitingManifest:
		if method != "getmanifest" {
			h.fatal(handshakeViolation("dispatch_before_manifest", "method", method).Errorf("method not allowed before getmanifest"))
			return
		}
		h.handleGetManifest(cmd)
		h.state = stateAwaitingInit
		return

	case stateAwaitingInit:
		if method != "init" {
			h.fatal(handshakeViolation("dispatch_before_init", "method", method).Errorf("method not allowed before init"))
			return
		}
		h.handleInit(cmd, paramsView)
		h.state = stateReady
		return

	case stateReady:
		h.dispatchReady(cmd, method, paramsView)
		return
	}
}

// dispatchReady routes a fully post-handshake inbound message to a
// registered command, hook, or subscription handler.
func (h *Host) dispatchReady(cmd *Command, method string, params View) {
	if id, hasID := cmd.ID(); hasID {
		_ = id
		if hook, ok := h.hooks[method]; ok {
			h.runHandler(cmd, method, hook, params)
			return
		}
		if spec, ok := h.commands[method]; ok {
			h.runHandler(cmd, method, spec.Handler, params)
			return
		}
		h.fatal(protocolViolation("dispatch_unknown_method", "method", method).Errorf("unknown method"))
		return
	}

	// Notification: no id, no reply expected.
	if handler, ok := h.matchSubscription(method); ok {
		h.runHandler(cmd, method, handler, params)
		return
	}
	// An unrecognized notification is silently ignored, matching the
	// node's own fire-and-forget contract for notifications nobody
	// subscribed to.
}

func (h *Host) runHandler(cmd *Command, method string, handler CommandHandler, params View) {
	start := time.Now()
	result := handler(cmd, params)
	outcome := "pending"
	if result.IsComplete() {
		outcome = "complete"
	}
	h.metrics.observeDispatch(method, outcome, time.Since(start))
}

// handleInit validates and applies the node's init configuration (§6),
// dials the RPC socket, probes allow-deprecated-apis synchronously via
// RPCDelve, runs the user's init callback if any, and replies with {}.
func (h *Host) handleInit(cmd *Command, params View) {
	if err := validateInitConfig(params.Bytes()); err != nil {
		h.fatal(err)
		return
	}

	lightningDir, _, _ := params.Delve(".configuration.lightning-dir")
	network, _, _ := params.Delve(".configuration.network")
	rpcFile, _, _ := params.Delve(".configuration.rpc-file")
	h.lightningDir = string(lightningDir)
	h.network = string(network)
	h.rpcFile = string(rpcFile)

	if h.lightningDir != "" {
		if err := os.Chdir(h.lightningDir); err != nil {
			h.fatal(transportError("init_chdir", "dir", h.lightningDir).Wrap(err))
			return
		}
	}

	if err := h.applyOptions(params); err != nil {
		h.fatal(err)
		return
	}

	if err := h.dialRPC(); err != nil {
		h.fatal(err)
		return
	}

	allowed, err := h.RPCDelve("listconfigs", map[string]any{}, ".allow-deprecated-apis")
	if err != nil {
		h.fatal(err)
		return
	}
	if b, boolErr := jsonparser.ParseBoolean(allowed.Bytes()); boolErr == nil {
		h.allowDeprecatedAPIs = b
	}

	h.startRPCPump()

	if h.initCallback != nil {
		if err := h.initCallback(h, params); err != nil {
			h.fatal(protocolViolation("init_callback").Wrap(err))
			return
		}
	}

	CommandSuccessStr(cmd, "")
}

// applyOptions walks init's options object, runs each registered
// option's typed parse callback, and records the value, ignoring any
// option the node sends that this plugin never registered (forward
// compatibility with future node versions). A value that fails its
// type's parser is fatal, mirroring the original's per-option parse
// callback (u64_option/charp_option) rejecting a bad value.
func (h *Host) applyOptions(params View) error {
	known := make(map[string]OptionSpec, len(h.options))
	for _, o := range h.options {
		known[o.Name] = o
	}

	return params.ObjectEach(func(key string, value []byte, typ jsonparser.ValueType) error {
		spec, ok := known[key]
		if !ok {
			return nil
		}

		var raw string
		switch typ {
		case jsonparser.String:
			s, _ := jsonparser.ParseString(value)
			raw = s
		default:
			raw = string(value)
		}

		if err := parseOptionValue(spec.Type, raw); err != nil {
			return protocolViolation("init_option_rejected", "option", key, "value", raw).Wrap(err)
		}

		h.optionValues[key] = raw
		return nil
	}, "options")
}

// parseOptionValue runs the typed parser matching an option's declared
// wire type, the Go analog of the original's u64_option/charp_option
// parse callbacks.
func parseOptionValue(t OptionType, raw string) error {
	switch t {
	case OptionTypeInt:
		_, err := IntOption(raw)
		return err
	case OptionTypeBool, OptionTypeFlag:
		_, err := BoolOption(raw)
		return err
	default:
		_, err := StringOption(raw)
		return err
	}
}
