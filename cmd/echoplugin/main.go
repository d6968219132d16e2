// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

// Package main is an example Lightning Network plugin built on
// pkg/pluginhost. It registers an "echo" command and an
// "echoplugin-peercount" command, subscribes to the node's "connect"
// notification, and logs its initialization both to the node (via the
// JSON-RPC log notification) and to stderr.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
