// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"testing"

	"github.com/buger/jsonparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_StringAndInt(t *testing.T) {
	v := NewView([]byte(`{"method":"getmanifest","id":7}`))

	method, err := v.String("method")
	require.NoError(t, err)
	assert.Equal(t, "getmanifest", method)

	id, err := v.Int("id")
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
}

func TestView_Has(t *testing.T) {
	v := NewView([]byte(`{"error":{"code":1}}`))
	assert.True(t, v.Has("error"))
	assert.False(t, v.Has("result"))
}

func TestView_Raw_SplicesExactBytes(t *testing.T) {
	v := NewView([]byte(`{"result":{"ok":true,"n":3}}`))
	raw, err := v.Raw("result")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"n":3}`, string(raw))
}

func TestView_Delve_DottedPath(t *testing.T) {
	v := NewView([]byte(`{"configuration":{"lightning-dir":"/tmp/ln","rpc-file":"lightning-rpc"}}`))

	val, _, err := v.Delve(".configuration.lightning-dir")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ln", string(val))
}

func TestView_Delve_IndexedPath(t *testing.T) {
	v := NewView([]byte(`{"channels":[{"short_channel_id":"1x2x3"},{"short_channel_id":"4x5x6"}]}`))

	val, _, err := v.Delve(".channels[1].short_channel_id")
	require.NoError(t, err)
	assert.Equal(t, "4x5x6", string(val))
}

func TestView_Delve_MalformedGuide(t *testing.T) {
	v := NewView([]byte(`{"a":1}`))
	_, _, err := v.Delve("not-a-guide")
	assert.Error(t, err)
}

func TestView_ObjectEach_WalksNestedObject(t *testing.T) {
	v := NewView([]byte(`{"options":{"foo":"bar","count":3}}`))

	seen := map[string]string{}
	err := v.ObjectEach(func(key string, value []byte, _ jsonparser.ValueType) error {
		seen[key] = string(value)
		return nil
	}, "options")
	require.NoError(t, err)
	assert.Equal(t, "bar", seen["foo"])
	assert.Equal(t, "3", seen["count"])
}
