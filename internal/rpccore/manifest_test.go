// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler() CommandHandler {
	return func(cmd *Command, params View) CommandResult {
		if cmd.UsageOnly() {
			SetUsage(cmd, "message")
			return CommandSuccessStr(cmd, "")
		}
		msg, _ := params.String("message")
		return CommandSuccess(cmd, map[string]string{"message": msg})
	}
}

func TestProbeUsage_PopulatesUsageMap(t *testing.T) {
	h := newTestHost()
	h.RegisterCommand(CommandSpec{Name: "echo", Handler: echoHandler()})

	h.probeUsage()
	assert.Equal(t, "message", h.usage["echo"])
}

func TestProbeUsage_PanicsWhenHandlerReturnsPending(t *testing.T) {
	h := newTestHost()
	h.RegisterCommand(CommandSpec{Name: "broken", Handler: func(cmd *Command, _ View) CommandResult {
		return Pending
	}})

	assert.Panics(t, func() { h.probeUsage() })
}

func TestBuildManifest_IncludesOptionsCommandsHooksSubscriptions(t *testing.T) {
	h := newTestHost()
	h.SetRestartability(Restartable)
	h.RegisterOption(OptionSpec{Name: "echoplugin-prefix", Type: OptionTypeString, Description: "prefix"})
	h.RegisterCommand(CommandSpec{Name: "echo", Usage: "message", Description: "echo it", Handler: echoHandler()})
	h.RegisterHook(HookSpec{Name: "htlc_accepted", Handler: func(*Command, View) CommandResult { return Pending }})
	require.NoError(t, h.Subscribe("connect", func(*Command, View) CommandResult { return Pending }))
	h.RegisterNotificationTopic("echoplugin_notice")

	h.probeUsage()
	m := h.buildManifest()

	assert.Equal(t, "true", m.Dynamic)
	require.Len(t, m.Options, 1)
	assert.Equal(t, "echoplugin-prefix", m.Options[0].Name)
	assert.Equal(t, "string", m.Options[0].Type)
	require.Len(t, m.RPCMethods, 1)
	assert.Equal(t, "echo", m.RPCMethods[0].Name)
	assert.Equal(t, "message", m.RPCMethods[0].Usage)
	assert.Equal(t, []string{"htlc_accepted"}, m.Hooks)
	assert.Equal(t, []string{"connect"}, m.Subscriptions)
	assert.Equal(t, []string{"echoplugin_notice"}, m.Notifications)
}

func TestManifestJSON_IsValidJSON(t *testing.T) {
	h := newTestHost()
	h.RegisterCommand(CommandSpec{Name: "echo", Usage: "message", Handler: echoHandler()})

	raw, err := h.ManifestJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "rpcmethods")
	assert.Contains(t, decoded, "dynamic")
}

func TestHandleGetManifest_ReturnsComplete(t *testing.T) {
	h := newTestHost()
	h.RegisterCommand(CommandSpec{Name: "echo", Usage: "message", Handler: echoHandler()})

	cmd := newTestCommand(h, 1)
	result := h.handleGetManifest(cmd)
	assert.True(t, result.IsComplete())

	raw := drainOutbound(t, h)
	assert.Contains(t, string(raw), `"rpcmethods"`)
}

func TestOptionType_String(t *testing.T) {
	assert.Equal(t, "string", OptionTypeString.String())
	assert.Equal(t, "int", OptionTypeInt.String())
	assert.Equal(t, "bool", OptionTypeBool.String())
	assert.Equal(t, "flag", OptionTypeFlag.String())
}

func TestIntOption(t *testing.T) {
	v, err := IntOption("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)

	_, err = IntOption("notanumber")
	assert.Error(t, err)
}

func TestBoolOption(t *testing.T) {
	v, err := BoolOption("true")
	require.NoError(t, err)
	assert.True(t, v)
}
