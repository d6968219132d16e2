// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"bytes"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// initConfigSchemaJSON requires the three configuration fields the core
// itself depends on (lightning-dir to chdir into, network reported by
// Host.Network, rpc-file to dial) and that options, if present, is an
// object. Anything else the node may add to configuration is passed
// through untouched.
const initConfigSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["configuration"],
  "properties": {
    "configuration": {
      "type": "object",
      "required": ["lightning-dir", "network", "rpc-file"],
      "properties": {
        "lightning-dir": {"type": "string", "minLength": 1},
        "network": {"type": "string", "minLength": 1},
        "rpc-file": {"type": "string", "minLength": 1}
      }
    },
    "options": {
      "type": "object"
    }
  }
}`

var initConfigSchema = mustCompileInitConfigSchema()

func mustCompileInitConfigSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(initConfigSchemaJSON))
	if err != nil {
		panic("rpccore: invalid embedded init config schema: " + err.Error())
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("init-config.json", doc); err != nil {
		panic("rpccore: invalid embedded init config schema: " + err.Error())
	}
	schema, err := compiler.Compile("init-config.json")
	if err != nil {
		panic("rpccore: failed to compile embedded init config schema: " + err.Error())
	}
	return schema
}

// validateInitConfig checks raw (the full params object of an init
// request) against initConfigSchema, turning a malformed init into a
// protocol violation rather than a panic on a missing field deep in
// handleInit.
func validateInitConfig(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return protocolViolation("init_config_unmarshal").Wrap(err)
	}
	if err := initConfigSchema.Validate(doc); err != nil {
		return protocolViolation("init_config_schema").Wrap(err)
	}
	return nil
}
