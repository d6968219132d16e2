// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/oops"
)

type logNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  logNotifyParams `json:"params"`
}

type logNotifyParams struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// LogNotify enqueues a log notification (§6) to the node on stdout.
// level must be one of "debug", "info", "warn", "error"; callers
// normally go through Debugf/Infof/Warnf/Errorf below instead of
// calling this directly.
func (h *Host) LogNotify(level, message string) {
	n := logNotification{
		JSONRPC: "2.0",
		Method:  "log",
		Params:  logNotifyParams{Level: level, Message: message},
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return
	}
	h.enqueueOutbound(raw)
}

func (h *Host) Debugf(format string, args ...any) { h.logf("debug", format, args...) }
func (h *Host) Infof(format string, args ...any)  { h.logf("info", format, args...) }
func (h *Host) Warnf(format string, args ...any)  { h.logf("warn", format, args...) }
func (h *Host) Errorf(format string, args ...any) { h.logf("error", format, args...) }

func (h *Host) logf(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.LogNotify(level, msg)
	if h.logger != nil {
		h.logger.Log(context.Background(), slogLevel(level), msg)
	}
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fatal logs err at error level on both sinks — the node-facing log
// notification and the local slog logger — and exits the process with
// status 1, mirroring plugin_err's log-before-exit ordering: the
// original always calls plugin_logv at LOG_BROKEN before errx(1, ...).
func (h *Host) fatal(err error) {
	if h.exitErr != nil {
		// Already fataling; avoid a double close of the outbound
		// channel if a second failure arrives before exit takes effect
		// (only possible when exitFn is overridden for tests).
		return
	}
	h.exitErr = err
	if err != nil {
		h.LogNotify("error", err.Error())
	}
	if h.logger != nil {
		LogError(h.logger, "plugin exiting fatally", err)
	}
	h.drainOutboundBestEffort()
	h.exit(1)
}

// defaultExit is a var so tests can replace Host.exitFn and observe the
// call instead of terminating the test process.
var defaultExit = os.Exit

func (h *Host) exit(code int) {
	if h.exitFn != nil {
		h.exitFn(code)
		return
	}
	defaultExit(code)
}

// LogError extracts an oops error's code and context, if present, and
// logs msg with them attached as structured slog fields, ported from
// the teacher's pkg/errutil.LogError.
func LogError(logger *slog.Logger, msg string, err error) {
	if logger == nil || err == nil {
		return
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
