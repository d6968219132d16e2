// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

// Package config loads the ambient, operator-facing configuration of
// the plugin binary itself — log level/format, metrics listen address —
// which exists before the node ever sends getmanifest/init and is
// therefore orthogonal to the node-driven option mechanism in
// internal/rpccore. It layers, lowest priority first: compiled-in
// defaults, an optional local YAML file, and command-line flags.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the plugin binary's ambient operational settings.
type Config struct {
	LogLevel      string `koanf:"log_level"`
	LogFormat     string `koanf:"log_format"`
	MetricsListen string `koanf:"metrics_listen"`
}

func defaults() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "json",
		MetricsListen: "127.0.0.1:9090",
	}
}

// Load builds a Config from compiled-in defaults, optionally overridden
// by path (if non-empty and the file exists) and then by flags (if
// non-nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	d := defaults()
	if err := k.Load(confmap.Provider(map[string]any{
		"log_level":      d.LogLevel,
		"log_format":     d.LogFormat,
		"metrics_listen": d.MetricsListen,
	}, "."), nil); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
