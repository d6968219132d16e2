// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"errors"
	"io"
	"syscall"
	"time"
)

// Run starts the reader and writer pumps and drives the cooperative,
// single-threaded event loop until the node disconnects (clean exit 0)
// or a transport/protocol error occurs (fatal exit 1). Run only
// returns at all when given an exitFn that doesn't itself terminate the
// process, which is how tests drive it; in a real plugin binary it
// never returns.
func (h *Host) Run() error {
	go h.pumpStdin()
	go h.pumpWriter(h.stdout, h.outboundCh, h.writeErrCh, h.writerDone)
	go h.pumpRPCWriter()

	for {
		// Opportunistic priority drain (§2, §8 event loop design): if a
		// full RPC reply is already buffered, process exactly one and
		// loop again before touching anything else. h.rpcFramesCh is
		// nil until init dials the RPC socket, so this is naturally a
		// no-op during the handshake.
		select {
		case frame := <-h.rpcFramesCh:
			h.handleRPCReplyFrame(frame)
			if h.exitErr != nil {
				return h.exitErr
			}
			continue
		default:
		}

		var timerC <-chan time.Time
		var pending *time.Timer
		if deadline, ok := h.timers.nextDeadline(); ok {
			d := time.Until(deadline)
			if d < 0 {
				d = 0
			}
			pending = time.NewTimer(d)
			timerC = pending.C
		}

		select {
		case frame := <-h.rpcFramesCh:
			stopTimer(pending)
			h.handleRPCReplyFrame(frame)
			if h.exitErr != nil {
				return h.exitErr
			}

		case frame := <-h.stdinFramesCh:
			stopTimer(pending)
			h.Dispatch(frame)
			if h.exitErr != nil {
				return h.exitErr
			}

		case err := <-h.stdinReadErrCh:
			stopTimer(pending)
			if err == io.EOF {
				return h.shutdown()
			}
			h.fatal(transportError("stdin_read").Wrap(err))
			return err

		case err := <-h.rpcReadErrCh:
			stopTimer(pending)
			if err != io.EOF {
				h.fatal(transportError("rpc_read").Wrap(err))
				return err
			}
			// The RPC socket closing on its own does not end the
			// process; only stdin/stdout govern lifetime (§6). Disable
			// this case for the rest of the run via the nil-channel
			// idiom.
			h.rpcFramesCh = nil
			h.rpcReadErrCh = nil

		case err := <-h.writeErrCh:
			stopTimer(pending)
			if isPeerClosed(err) {
				return h.shutdown()
			}
			h.fatal(transportError("stdout_write").Wrap(err))
			return err

		case err := <-h.rpcWriteErrCh:
			stopTimer(pending)
			h.fatal(transportError("rpc_write").Wrap(err))
			return err

		case <-timerC:
			due := h.timers.popExpired(time.Now())
			for _, t := range due {
				h.metrics.timerFired()
				h.fireTimer(t)
			}
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// isPeerClosed reports whether err is the write-side counterpart of a
// clean EOF: the node closed its read end of stdout, which surfaces to
// the plugin only as a failed write, never as io.EOF. §6 treats either
// connection ending the same way — exit 0, not a fatal 1.
func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, syscall.EPIPE)
}

func (h *Host) handleRPCReplyFrame(frame []byte) {
	h.metrics.rpcReplied()
	if err := h.HandleRPCReply(NewView(frame)); err != nil {
		h.fatal(err)
	}
}

// pumpStdin reads framed inbound messages off stdin and forwards them
// to the event loop, one frame per send, until a read fails or the
// node closes the descriptor.
func (h *Host) pumpStdin() {
	fr := NewFrameReader(h.stdin)
	fr.OnGrow(h.metrics.bufferGrew)
	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			h.stdinReadErrCh <- err
			return
		}
		h.stdinFramesCh <- frame
	}
}

// pumpWriter drains ch, writing each frame followed by the delimiter to
// w, until ch is closed (clean shutdown) or a write fails.
func (h *Host) pumpWriter(w io.Writer, ch chan []byte, errCh chan error, done chan struct{}) {
	defer close(done)
	for frame := range ch {
		if _, err := w.Write(EncodeFrame(frame)); err != nil {
			errCh <- err
			return
		}
	}
}

// pumpRPCWriter drains async outbound RPC requests (from SendOutreq)
// onto the RPC socket.
func (h *Host) pumpRPCWriter() {
	defer close(h.rpcWriterDone)
	for frame := range h.rpcOutCh {
		if h.rpcConn == nil {
			continue
		}
		if _, err := h.rpcConn.Write(EncodeFrame(frame)); err != nil {
			h.rpcWriteErrCh <- err
			return
		}
	}
}

// shutdown flushes any already-queued outbound writes, closes the RPC
// socket so its reader and writer pumps exit, and exits 0, the
// clean-disconnect path (§6): the plugin exits 0 when stdin or stdout
// ends, since that means the node itself has gone away.
func (h *Host) shutdown() error {
	close(h.outboundCh)
	close(h.rpcOutCh)
	select {
	case <-h.writerDone:
	case <-time.After(2 * time.Second):
	}
	if h.rpcConn != nil {
		_ = h.rpcConn.Close()
	}
	h.exit(0)
	return nil
}

// drainOutboundBestEffort gives the writer pump a short window to flush
// whatever is already queued before a fatal exit, so the node has a
// chance to see the final log notification.
func (h *Host) drainOutboundBestEffort() {
	close(h.outboundCh)
	select {
	case <-h.writerDone:
	case <-time.After(200 * time.Millisecond):
	}
}
