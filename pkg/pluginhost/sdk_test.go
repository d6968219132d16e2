// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package pluginhost

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHost_WiresCommandsHooksSubscriptions(t *testing.T) {
	echoed := false
	cfg := &ServeConfig{
		Name:    "test-plugin",
		Version: "0.0.1",
		Commands: []Command{
			{
				Name:  "echo",
				Usage: "message",
				Handler: func(ctx *Context) Result {
					if ctx.UsageOnly() {
						return ctx.SetUsage("message")
					}
					echoed = true
					return ctx.Success(map[string]string{"ok": "true"})
				},
			},
		},
		Subscriptions: []Subscription{
			{Topic: "connect", Handler: func(ctx *Context) Result { return Pending }},
		},
		Hooks: []Hook{
			{Name: "htlc_accepted", Handler: func(ctx *Context) Result { return Pending }},
		},
		Notifies: []string{"custom_notice"},
	}

	host, err := BuildHost(cfg)
	require.NoError(t, err)

	manifest, err := host.ManifestJSON()
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `"echo"`)
	assert.Contains(t, string(manifest), `"htlc_accepted"`)
	assert.Contains(t, string(manifest), `"connect"`)
	assert.Contains(t, string(manifest), `"custom_notice"`)
	assert.False(t, echoed)
}

func TestBuildHost_DefaultsToOSStdio(t *testing.T) {
	cfg := &ServeConfig{Name: "test-plugin", Version: "0.0.1"}
	host, err := BuildHost(cfg)
	require.NoError(t, err)
	assert.NotNil(t, host)
}

func TestBuildHost_InvalidGlobSubscriptionErrors(t *testing.T) {
	cfg := &ServeConfig{
		Name: "test-plugin",
		Subscriptions: []Subscription{
			{Topic: "channel_[", Handler: func(ctx *Context) Result { return Pending }},
		},
	}
	_, err := BuildHost(cfg)
	assert.Error(t, err)
}

func TestBuildHost_CustomStdioOverride(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	cfg := &ServeConfig{Name: "test-plugin", Stdin: r, Stdout: w}
	host, err := BuildHost(cfg)
	require.NoError(t, err)
	assert.NotNil(t, host)
}
