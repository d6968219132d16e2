// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

// Package logging provides structured logging with OpenTelemetry trace
// context and a per-process instance id, used for the internal
// diagnostics sink (distinct from the JSON-RPC log notification sink
// in internal/rpccore, which talks to the node rather than stderr).
package logging

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

// traceHandler wraps a slog.Handler, stamping every record with the
// plugin name, version, a per-process instance id, and (when present)
// the active OpenTelemetry trace/span id.
type traceHandler struct {
	handler    slog.Handler
	plugin     string
	version    string
	instanceID string
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("plugin", h.plugin),
		slog.String("version", h.version),
		slog.String("instance_id", h.instanceID),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	return h.handler.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{
		handler:    h.handler.WithAttrs(attrs),
		plugin:     h.plugin,
		version:    h.version,
		instanceID: h.instanceID,
	}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{
		handler:    h.handler.WithGroup(name),
		plugin:     h.plugin,
		version:    h.version,
		instanceID: h.instanceID,
	}
}

// Setup creates a configured slog.Logger for internal diagnostics.
// format is "json" or "text" (defaults to "json"). If w is nil, writes
// to os.Stderr, which is always correct for a plugin process since
// stdout is reserved for the JSON-RPC transport.
func Setup(plugin, version, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	handler := &traceHandler{
		handler:    base,
		plugin:     plugin,
		version:    version,
		instanceID: processInstanceID,
	}
	return slog.New(handler)
}

// processInstanceID is minted once per process, so every logger Setup
// builds stamps the same instance_id.
var processInstanceID = newInstanceID()

// SetDefault configures and installs the default logger.
func SetDefault(plugin, version, format string) {
	slog.SetDefault(Setup(plugin, version, format, nil))
}

func newInstanceID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
