// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerWheel_PopExpiredOrdersByDeadline(t *testing.T) {
	w := newTimerWheel()

	var fired []string
	mk := func(name string, delay time.Duration) {
		w.schedule(delay, func() CommandResult {
			fired = append(fired, name)
			return Pending
		})
	}
	mk("third", 30*time.Millisecond)
	mk("first", 10*time.Millisecond)
	mk("second", 20*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	due := w.popExpired(time.Now())
	require.Len(t, due, 3)
	for _, timer := range due {
		timer.cb()
	}
	assert.Equal(t, []string{"first", "second", "third"}, fired)
}

func TestTimerWheel_NextDeadlineEmpty(t *testing.T) {
	w := newTimerWheel()
	_, ok := w.nextDeadline()
	assert.False(t, ok)
}

func TestTimer_StopPreventsFiring(t *testing.T) {
	w := newTimerWheel()
	fired := false
	timer := w.schedule(5*time.Millisecond, func() CommandResult {
		fired = true
		return Pending
	})
	timer.Stop()

	time.Sleep(10 * time.Millisecond)
	due := w.popExpired(time.Now())
	assert.Empty(t, due)
	assert.False(t, fired)
}

func TestTimer_DoubleStopIsNoOp(t *testing.T) {
	w := newTimerWheel()
	timer := w.schedule(5*time.Millisecond, func() CommandResult { return Pending })
	timer.Stop()
	assert.NotPanics(t, func() { timer.Stop() })
}

func TestHost_FireTimerLeavesInTimerIncrementedWhilePending(t *testing.T) {
	h := newTestHost()
	var observed int
	timer := h.NewTimer(time.Millisecond, func() CommandResult {
		observed = h.inTimer
		return Pending
	})

	h.fireTimer(timer)
	assert.Equal(t, 1, observed)
	assert.Equal(t, 1, h.inTimer)

	h.TimerComplete()
	assert.Equal(t, 0, h.inTimer)
}

func TestHost_FireTimerAutoDecrementsOnCompleteResult(t *testing.T) {
	h := newTestHost()
	cmd := &Command{host: h}
	timer := h.NewTimer(time.Millisecond, func() CommandResult {
		return CommandSuccessStr(cmd, "done")
	})

	h.fireTimer(timer)
	assert.Equal(t, 0, h.inTimer)
}
