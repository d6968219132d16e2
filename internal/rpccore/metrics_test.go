// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeDispatch("echo", "complete", time.Millisecond)
		m.rpcSent()
		m.rpcReplied()
		m.timerFired()
		m.bufferGrew()
	})
}

func TestRegisterMetrics_CountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	require.NoError(t, RegisterMetrics(reg, m))

	m.observeDispatch("echo", "complete", time.Millisecond)
	m.rpcSent()
	m.timerFired()
	m.bufferGrew()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.commandsDispatched.WithLabelValues("echo", "complete")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.dispatchDuration, "pluginhost_dispatch_duration_seconds"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rpcsInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.timersFired))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bufferGrowths))
}

func TestRegisterMetrics_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1 := NewMetrics()
	m2 := NewMetrics()
	require.NoError(t, RegisterMetrics(reg, m1))

	// m2's collectors share the same fully-qualified names as m1's, so
	// registering them against the same registry must fail.
	assert.Error(t, RegisterMetrics(reg, m2))
}
