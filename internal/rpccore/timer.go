// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"container/heap"
	"time"
)

// TimerCallback runs when a Timer fires. Like any handler it returns a
// CommandResult: Pending if it has started more asynchronous work
// (typically another SendOutreq), or the result of a finalizer if it
// owns a command that is now done.
type TimerCallback func() CommandResult

// Timer is a single scheduled callback. Obtained from Host.NewTimer,
// it may be cancelled with Stop before it fires.
type Timer struct {
	deadline time.Time
	cb       TimerCallback
	index    int
	wheel    *timerWheel
}

// Stop cancels the timer if it has not already fired. Stopping a timer
// that already fired, or one created by a different Host, is a no-op.
func (t *Timer) Stop() {
	if t.wheel != nil {
		t.wheel.remove(t)
	}
}

// timerWheel is a min-heap of pending timers ordered by deadline. The
// event loop asks it for the next deadline, sleeps until then (or until
// some other I/O source wakes it first), and pops everything due.
type timerWheel struct {
	h timerHeap
}

func newTimerWheel() *timerWheel {
	return &timerWheel{}
}

func (w *timerWheel) schedule(delay time.Duration, cb TimerCallback) *Timer {
	t := &Timer{deadline: time.Now().Add(delay), cb: cb, wheel: w}
	heap.Push(&w.h, t)
	return t
}

func (w *timerWheel) remove(t *Timer) {
	if t.index < 0 || t.index >= len(w.h) || w.h[t.index] != t {
		return
	}
	heap.Remove(&w.h, t.index)
	t.index = -1
}

func (w *timerWheel) nextDeadline() (time.Time, bool) {
	if len(w.h) == 0 {
		return time.Time{}, false
	}
	return w.h[0].deadline, true
}

func (w *timerWheel) popExpired(now time.Time) []*Timer {
	var due []*Timer
	for len(w.h) > 0 && !w.h[0].deadline.After(now) {
		t := heap.Pop(&w.h).(*Timer)
		t.index = -1
		due = append(due, t)
	}
	return due
}

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// NewTimer schedules cb to run after delay elapses, once the event loop
// reaches it. It mirrors plugin_timer: the in-flight count it
// contributes to is tracked so a timer firing during shutdown can still
// be told apart from one that never ran.
func (h *Host) NewTimer(delay time.Duration, cb TimerCallback) *Timer {
	return h.timers.schedule(delay, cb)
}

// fireTimer runs t's callback, tracking the in-timer count the way
// plugin_timer does via call_plugin_timer/in_timer. A callback that
// finishes inline (returns Complete) is auto-decremented here; one that
// hands off to asynchronous continuation work (returns Pending, e.g. it
// started a SendOutreq) leaves the count incremented until that work
// later calls TimerComplete, mirroring the Pending/Complete discipline
// command.go enforces for commands.
func (h *Host) fireTimer(t *Timer) {
	h.inTimer++
	result := t.cb()
	if result.IsComplete() {
		h.inTimer--
	}
}

// TimerComplete decrements the in-timer count on behalf of a timer
// callback that returned Pending. The callback's eventual continuation
// must call this exactly once; fireTimer cannot decrement for it since
// it has no way to observe when the deferred work actually finishes.
func (h *Host) TimerComplete() {
	h.inTimer--
}
