// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"io"
	"log/slog"
)

// handshakeState tracks the two-phase handshake described in §4 and §6:
// the node must send getmanifest, then init, before anything else is
// honored.
type handshakeState int

const (
	stateAwaitingManifest handshakeState = iota
	stateAwaitingInit
	stateReady
)

// InitCallback runs once, after the core has validated and applied the
// node's init configuration and before the {} reply is sent, letting a
// plugin do its own setup (e.g. dialing external services) with the
// now-known lightning-dir/network/options in hand. Returning an error
// is fatal: init has no partial-failure mode, matching the original's
// all-or-nothing handshake.
type InitCallback func(h *Host, config View) error

// Host is the single per-process value holding everything the original
// kept as global mutables: the outbound table, the usage map, the timer
// wheel, the RPC connection, registered handlers, and handshake state.
// It is built with NewHost and registration methods, then run to
// completion with Run.
type Host struct {
	stdin  io.Reader
	stdout io.Writer
	logger *slog.Logger
	metrics *Metrics
	exitFn func(int)

	state        handshakeState
	restart      Restartability
	initCallback InitCallback

	options      []OptionSpec
	optionValues map[string]string

	commands     map[string]CommandSpec
	commandOrder []string

	hooks     map[string]CommandHandler
	hookOrder []string

	subscriptions     map[string]CommandHandler
	subscriptionOrder []string
	subGlobs          []globSubscription
	notifyTopics      []string

	usage        map[string]string
	pendingUsage string

	reqCounter uint64
	outReqs    map[uint64]*OutRequest

	timers  *timerWheel
	inTimer int

	rpcConn   io.ReadWriteCloser
	rpcReader *FrameReader

	outboundCh    chan []byte
	rpcOutCh      chan []byte
	writerDone    chan struct{}
	rpcWriterDone chan struct{}
	writeErrCh    chan error
	rpcWriteErrCh chan error

	stdinFramesCh  chan []byte
	stdinReadErrCh chan error
	rpcFramesCh    chan []byte
	rpcReadErrCh   chan error

	lightningDir        string
	network             string
	rpcFile             string
	allowDeprecatedAPIs bool

	// exitErr is set by fatal before calling exit, so the event loop
	// (which cannot assume exit actually terminates the process, since
	// tests override it) knows to stop iterating.
	exitErr error
}

// NewHost constructs a Host reading handshake/command traffic from
// stdin and writing replies/log notifications to stdout. logger may be
// nil, in which case only the node-facing log notification sink (§6)
// is used.
func NewHost(stdin io.Reader, stdout io.Writer, logger *slog.Logger) *Host {
	return &Host{
		stdin:         stdin,
		stdout:        stdout,
		logger:        logger,
		state:         stateAwaitingManifest,
		commands:      make(map[string]CommandSpec),
		optionValues:  make(map[string]string),
		outReqs:       make(map[uint64]*OutRequest),
		timers:        newTimerWheel(),
		outboundCh:    make(chan []byte, 64),
		rpcOutCh:      make(chan []byte, 64),
		writerDone:    make(chan struct{}),
		rpcWriterDone: make(chan struct{}),
		writeErrCh:    make(chan error, 1),
		rpcWriteErrCh: make(chan error, 1),
		stdinFramesCh:  make(chan []byte),
		stdinReadErrCh: make(chan error, 1),
	}
}

// SetMetrics attaches m, whose counters are updated as the host runs.
// Calling it is optional; a nil Metrics records nothing.
func (h *Host) SetMetrics(m *Metrics) {
	h.metrics = m
}

// SetRestartability sets the manifest's "dynamic" field.
func (h *Host) SetRestartability(r Restartability) {
	h.restart = r
}

// SetInitCallback registers fn to run once init's configuration has
// been validated and options applied, before the {} reply is sent.
func (h *Host) SetInitCallback(fn InitCallback) {
	h.initCallback = fn
}

// RegisterOption adds o to the manifest's option list. Options must be
// registered before Run is called; init's options object is matched
// against them by name.
func (h *Host) RegisterOption(o OptionSpec) {
	h.options = append(h.options, o)
}

// RegisterCommand adds c to the set of JSON-RPC methods this plugin
// answers once ready. Registering the same name twice is a programmer
// error and panics, since it can only happen at startup wiring time,
// never from node input.
func (h *Host) RegisterCommand(c CommandSpec) {
	if _, dup := h.commands[c.Name]; dup {
		panic("rpccore: command " + c.Name + " registered twice")
	}
	h.commands[c.Name] = c
	h.commandOrder = append(h.commandOrder, c.Name)
}

// RegisterNotificationTopic declares a custom notification topic this
// plugin may itself emit, listed in the manifest's "notifications"
// field. This is distinct from Subscribe, which registers topics this
// plugin listens for.
func (h *Host) RegisterNotificationTopic(topic string) {
	h.notifyTopics = append(h.notifyTopics, topic)
}

// OptionValue returns the raw string value init supplied for a
// registered option, or ("", false) if the node did not set it.
func (h *Host) OptionValue(name string) (string, bool) {
	v, ok := h.optionValues[name]
	return v, ok
}

// AllowDeprecatedAPIs reports the value of the node-wide
// allow-deprecated-apis config flag, fetched via RPCDelve during init.
func (h *Host) AllowDeprecatedAPIs() bool {
	return h.allowDeprecatedAPIs
}

// LightningDir, Network, and RPCFile return the three fields of init's
// configuration object the core itself depends on.
func (h *Host) LightningDir() string { return h.lightningDir }
func (h *Host) Network() string      { return h.network }
func (h *Host) RPCFile() string      { return h.rpcFile }

func (h *Host) enqueueOutbound(raw []byte) {
	h.outboundCh <- raw
}

func (h *Host) enqueueRPC(raw []byte) {
	h.metrics.rpcSent()
	h.rpcOutCh <- raw
}

// rpcFrameReader lazily builds the framed reader over the RPC socket,
// valid only after init has dialed rpc-file.
func (h *Host) rpcFrameReader() *FrameReader {
	if h.rpcReader == nil {
		h.rpcReader = NewFrameReader(h.rpcConn)
		h.rpcReader.OnGrow(h.metrics.bufferGrew)
	}
	return h.rpcReader
}
