// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"github.com/samber/oops"
)

// Error codes attached to oops errors raised by the core. They are
// surfaced in logs, never in JSON-RPC responses (those carry whatever
// code a handler chose, per the node-facing error taxonomy).
const (
	CodeProtocolViolation  = "PROTOCOL_VIOLATION"
	CodeTransportError     = "TRANSPORT_ERROR"
	CodeHandshakeViolation = "HANDSHAKE_VIOLATION"
)

// protocolViolation builds a fatal error for malformed or out-of-contract
// input from the node: missing fields, unparseable JSON, unknown ids.
func protocolViolation(op string, kv ...any) oops.OopsErrorBuilder {
	b := oops.In("rpccore").Code(CodeProtocolViolation).With("op", op)
	return withPairs(b, kv)
}

// transportError builds a fatal error for a read/write failure on one of
// the three I/O sources, other than a clean EOF.
func transportError(op string, kv ...any) oops.OopsErrorBuilder {
	b := oops.In("rpccore").Code(CodeTransportError).With("op", op)
	return withPairs(b, kv)
}

// handshakeViolation builds a fatal error for an inbound method that is
// not allowed in the host's current handshake state.
func handshakeViolation(op string, kv ...any) oops.OopsErrorBuilder {
	b := oops.In("rpccore").Code(CodeHandshakeViolation).With("op", op)
	return withPairs(b, kv)
}

func withPairs(b oops.OopsErrorBuilder, kv []any) oops.OopsErrorBuilder {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		b = b.With(key, kv[i+1])
	}
	return b
}
