// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"encoding/json"
)

// ReplyCallback is invoked with the subordinate RPC's full reply once a
// matching id arrives on the RPC socket. It must return the same
// CommandResult its owning command handler would have: typically
// Pending again (if the outer command is still waiting on more work) or
// the result of a finalizer.
type ReplyCallback func(cmd *Command, reply View) CommandResult

// OutRequest is a single outbound request awaiting a reply, keyed by id
// in Host's outbound table. cmd is the command this request was issued
// on behalf of (nil for requests issued outside any inbound command).
// The synchronous RPCDelve probe never creates an OutRequest.
type OutRequest struct {
	id      uint64
	cmd     *Command
	onOK    ReplyCallback
	onError ReplyCallback
}

// nextRequestID mints the next outbound request id. Ids are a
// monotonically increasing uint64 counter, never reused, matching the
// original's reqcounter; the table is only ever touched by the single
// event-loop goroutine so no locking is required.
func (h *Host) nextRequestID() uint64 {
	h.reqCounter++
	return h.reqCounter
}

// SendOutreq issues method(params) on the RPC connection to the node,
// registers onOK/onError against the minted id, and returns Pending.
// cmd is the inbound command this outbound call is being made on behalf
// of; it is handed back to whichever callback eventually fires.
func (h *Host) SendOutreq(cmd *Command, method string, params any, onOK, onError ReplyCallback) (CommandResult, error) {
	id := h.nextRequestID()

	rawParams, err := json.Marshal(params)
	if err != nil {
		return CommandResult{}, protocolViolation("send_outreq_marshal", "method", method).Wrap(err)
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  rawParams,
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return CommandResult{}, protocolViolation("send_outreq_marshal", "method", method).Wrap(err)
	}

	h.outReqs[id] = &OutRequest{id: id, cmd: cmd, onOK: onOK, onError: onError}
	h.enqueueRPC(raw)
	return Pending, nil
}

// HandleRPCReply looks up the id in an inbound RPC-socket reply, removes
// it from the outbound table, and dispatches to the matching callback.
// A reply for an id that was never sent, or sent and already replied to,
// is a protocol violation: the node-side RPC endpoint never reuses or
// invents ids. So is a reply with no jsonrpc member, or one carrying
// neither error nor result.
func (h *Host) HandleRPCReply(reply View) error {
	id, err := reply.Int("id")
	if err != nil {
		return protocolViolation("rpc_reply_missing_id").Wrap(err)
	}

	req, ok := h.outReqs[uint64(id)]
	if !ok {
		return protocolViolation("rpc_reply_unknown_id", "id", id).Errorf("reply for unknown request id")
	}
	delete(h.outReqs, uint64(id))

	if !reply.Has("jsonrpc") {
		return protocolViolation("rpc_reply_missing_jsonrpc", "id", id).Errorf("reply has no jsonrpc member")
	}

	var result CommandResult
	if reply.Has("error") {
		if req.onError == nil {
			return protocolViolation("rpc_reply_error_no_handler", "id", id).Errorf("no error callback registered for outbound request")
		}
		result = req.onError(req.cmd, reply)
	} else {
		if !reply.Has("result") {
			return protocolViolation("rpc_reply_missing_result", "id", id).Errorf("reply has neither error nor result")
		}
		if req.onOK == nil {
			return protocolViolation("rpc_reply_result_no_handler", "id", id).Errorf("no success callback registered for outbound request")
		}
		result = req.onOK(req.cmd, reply)
	}

	_ = result // callbacks finalize cmd themselves or return Pending again
	return nil
}
