// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"encoding/json"
	"strconv"
)

// Restartability records whether the plugin may be started after the
// node itself has already finished its own startup, derived directly
// into the manifest's "dynamic" field.
type Restartability int

const (
	NotRestartable Restartability = iota
	Restartable
)

func (r Restartability) String() string {
	if r == Restartable {
		return "true"
	}
	return "false"
}

// OptionType is the wire type of a registered option's value.
type OptionType int

const (
	OptionTypeString OptionType = iota
	OptionTypeInt
	OptionTypeBool
	OptionTypeFlag
)

func (t OptionType) String() string {
	switch t {
	case OptionTypeInt:
		return "int"
	case OptionTypeBool:
		return "bool"
	case OptionTypeFlag:
		return "flag"
	default:
		return "string"
	}
}

// OptionSpec describes one command-line option the plugin accepts from
// the node, supplied in init's options object.
type OptionSpec struct {
	Name        string
	Type        OptionType
	Description string
	Default     string
	Dynamic     bool
}

// IntOption parses a raw option value as a decimal integer, the typed
// equivalent of the original's u64_option.
func IntOption(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// StringOption returns a raw option value unchanged, the typed
// equivalent of the original's charp_option.
func StringOption(raw string) (string, error) {
	return raw, nil
}

// BoolOption parses a raw option value as "true"/"false".
func BoolOption(raw string) (bool, error) {
	return strconv.ParseBool(raw)
}

// CommandHandler handles one inbound command, notification, or hook.
type CommandHandler func(cmd *Command, params View) CommandResult

// CommandSpec describes one JSON-RPC method the plugin implements.
type CommandSpec struct {
	Name            string
	Usage           string
	Description     string
	LongDescription string
	Handler         CommandHandler
}

// HookSpec describes one node-side hook the plugin subscribes to. Hooks
// are requests like commands (they carry an id and expect a reply) but
// are listed separately in the manifest.
type HookSpec struct {
	Name    string
	Handler CommandHandler
}

// manifestWire is the JSON shape of the getmanifest response (§6).
type manifestWire struct {
	Options       []manifestOption `json:"options"`
	RPCMethods    []manifestMethod `json:"rpcmethods"`
	Subscriptions []string         `json:"subscriptions"`
	Hooks         []string         `json:"hooks"`
	Dynamic       string           `json:"dynamic"`
	Notifications []string         `json:"notifications,omitempty"`
}

type manifestOption struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     string `json:"default,omitempty"`
	Dynamic     bool   `json:"dynamic,omitempty"`
}

type manifestMethod struct {
	Name            string `json:"name"`
	Usage           string `json:"usage"`
	Description     string `json:"description"`
	LongDescription string `json:"long_description,omitempty"`
}

// buildManifest assembles the getmanifest reply from h's registered
// options, commands, subscriptions, and hooks.
func (h *Host) buildManifest() manifestWire {
	m := manifestWire{
		Dynamic:       h.restart.String(),
		Notifications: h.notifyTopics,
	}
	for _, o := range h.options {
		m.Options = append(m.Options, manifestOption{
			Name:        o.Name,
			Type:        o.Type.String(),
			Description: o.Description,
			Default:     o.Default,
			Dynamic:     o.Dynamic,
		})
	}
	for _, name := range h.commandOrder {
		c := h.commands[name]
		m.RPCMethods = append(m.RPCMethods, manifestMethod{
			Name:            c.Name,
			Usage:           h.usage[c.Name],
			Description:     c.Description,
			LongDescription: c.LongDescription,
		})
	}
	for _, topic := range h.subscriptionOrder {
		m.Subscriptions = append(m.Subscriptions, topic)
	}
	for _, name := range h.hookOrder {
		m.Hooks = append(m.Hooks, name)
	}
	return m
}

// handleGetManifest answers the node's getmanifest request. It is only
// ever called once, in the awaiting_manifest state (see handshake.go).
func (h *Host) handleGetManifest(cmd *Command) CommandResult {
	h.probeUsage()
	return CommandSuccess(cmd, h.buildManifest())
}

// probeUsage runs every registered command handler once in "usage
// probe" mode: the handler must call SetUsage and return Complete
// without otherwise acting, letting the host learn each method's
// parameter usage string before the manifest is ever sent.
func (h *Host) probeUsage() {
	if h.usage == nil {
		h.usage = make(map[string]string)
	}
	for _, name := range h.commandOrder {
		c := h.commands[name]
		probe := &Command{method: c.Name, usageOnly: true, host: h}
		h.pendingUsage = ""
		result := c.Handler(probe, View{})
		if !result.IsComplete() {
			panic("rpccore: usage probe for " + c.Name + " did not return Complete")
		}
		h.usage[c.Name] = h.pendingUsage
	}
}

// ManifestJSON builds and marshals the getmanifest reply without
// running the event loop, for tooling (e.g. a "manifest" CLI
// subcommand) that wants to inspect a plugin's shape offline.
func (h *Host) ManifestJSON() ([]byte, error) {
	h.probeUsage()
	return json.MarshalIndent(h.buildManifest(), "", "  ")
}

// SetUsage records cmd's usage string during a usage probe. It is a
// no-op (but harmless) outside of probe mode, so ordinary handlers can
// call it defensively without branching on UsageOnly themselves.
func SetUsage(cmd *Command, usage string) {
	if cmd.usageOnly {
		cmd.host.pendingUsage = usage
	}
}
