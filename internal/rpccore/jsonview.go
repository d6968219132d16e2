// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

// Package rpccore implements the JSON-RPC dispatch and concurrency engine
// shared by every plugin built on top of this library: framed stdio
// transport, the outbound request table, the two-phase handshake state
// machine, command lifecycle, timers, and the cooperative event loop.
package rpccore

import (
	"github.com/buger/jsonparser"
)

// View is a read-only window over one top-level JSON object. It never
// copies the underlying buffer; every lookup returns a sub-slice of buf
// (or an unescaped copy only when jsonparser must unescape a string).
type View struct {
	buf []byte
}

// NewView wraps buf, which must contain (at least) one complete JSON
// object starting at offset 0.
func NewView(buf []byte) View {
	return View{buf: buf}
}

// Bytes returns the underlying buffer.
func (v View) Bytes() []byte {
	return v.buf
}

// Member looks up a single top-level member by name.
func (v View) Member(name string) ([]byte, jsonparser.ValueType, error) {
	val, typ, _, err := jsonparser.Get(v.buf, name)
	return val, typ, err
}

// Has reports whether a top-level member is present.
func (v View) Has(name string) bool {
	_, _, _, err := jsonparser.Get(v.buf, name)
	return err == nil
}

// String returns a member's string value, unescaped.
func (v View) String(name string) (string, error) {
	return jsonparser.GetString(v.buf, name)
}

// Int returns a member's integer value.
func (v View) Int(name string) (int64, error) {
	return jsonparser.GetInt(v.buf, name)
}

// ObjectEach iterates the members of a (possibly nested) object value
// addressed by keys, in document order.
func (v View) ObjectEach(fn func(key string, value []byte, typ jsonparser.ValueType) error, keys ...string) error {
	return jsonparser.ObjectEach(v.buf, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		return fn(string(key), value, typ)
	}, keys...)
}

// ArrayEach iterates the elements of an array value addressed by keys.
func (v View) ArrayEach(fn func(value []byte, typ jsonparser.ValueType), keys ...string) error {
	_, err := jsonparser.ArrayEach(v.buf, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
		fn(value, typ)
	}, keys...)
	return err
}

// Raw returns the exact byte range of a member, suitable for splicing
// verbatim into another JSON object (used by forward_result/forward_error).
func (v View) Raw(name string) ([]byte, error) {
	val, _, _, err := jsonparser.Get(v.buf, name)
	return val, err
}

// Delve walks a dotted/indexed guide (".configuration.rpc-file",
// ".channels[0].short_channel_id") into this view and returns the raw
// value found there. The guide is parsed by the path-expression grammar
// in pathexpr.go.
func (v View) Delve(guide string) ([]byte, jsonparser.ValueType, error) {
	keys, err := ParsePath(guide)
	if err != nil {
		return nil, jsonparser.NotExist, err
	}
	val, typ, _, err := jsonparser.Get(v.buf, keys...)
	return val, typ, err
}
