// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"encoding/json"
	"fmt"
	"net"
)

// dialRPC connects to the Unix-domain stream socket named by init's
// rpc-file, used for the remainder of the process lifetime for both
// RPCDelve calls made during init, before the RPC pump starts, and
// async SendOutreq traffic once it has.
func (h *Host) dialRPC() error {
	conn, err := net.Dial("unix", h.rpcFile)
	if err != nil {
		return transportError("dial_rpc_socket", "path", h.rpcFile).Wrap(err)
	}
	h.rpcConn = conn
	h.rpcFramesCh = make(chan []byte)
	h.rpcReadErrCh = make(chan error, 1)
	return nil
}

// startRPCPump launches the goroutine that feeds h.rpcFramesCh for the
// event loop. It must not start until every synchronous RPCDelve call
// made during init has finished, since both read the same FrameReader
// and a goroutine racing a synchronous call would corrupt the buffer.
func (h *Host) startRPCPump() {
	go h.pumpRPC()
}

// pumpRPC reads framed replies off the RPC socket and forwards them to
// the event loop, one frame per send, until a read fails.
func (h *Host) pumpRPC() {
	fr := h.rpcFrameReader()
	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			h.rpcReadErrCh <- err
			return
		}
		h.rpcFramesCh <- frame
	}
}

// rpcRequest is the wire shape of an outbound JSON-RPC call, whether
// issued asynchronously via SendOutreq or synchronously via RPCDelve.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// RPCDelve issues method(params) on the RPC connection and blocks until
// its reply arrives, then walks guide into the result and returns the
// raw value found there. It exists for the handful of calls the host
// must make while handling init, before startRPCPump runs — chiefly
// the listconfigs probe for allow-deprecated-apis — and must never be
// called once the RPC pump is running, since it reads the RPC socket
// directly rather than through the event loop's multiplexed reader.
//
// guide may be empty, in which case the whole "result" object is
// returned. RPCDelve always sends id 0 rather than drawing from the
// nextRequestID counter SendOutreq uses, matching rpc_delve's
// start_json_request(tmpctx, 0, method, params) in the original.
func (h *Host) RPCDelve(method string, params any, guide string) (View, error) {
	const id = 0

	rawParams, err := json.Marshal(params)
	if err != nil {
		return View{}, protocolViolation("rpc_delve_marshal", "method", method).Wrap(err)
	}
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams}
	raw, err := json.Marshal(req)
	if err != nil {
		return View{}, protocolViolation("rpc_delve_marshal", "method", method).Wrap(err)
	}

	if _, err := h.rpcConn.Write(EncodeFrame(raw)); err != nil {
		return View{}, transportError("rpc_delve_write", "method", method).Wrap(err)
	}

	for {
		frame, err := h.rpcFrameReader().ReadFrame()
		if err != nil {
			return View{}, transportError("rpc_delve_read", "method", method).Wrap(err)
		}
		reply := NewView(frame)

		gotID, err := reply.Int("id")
		if err != nil {
			return View{}, protocolViolation("rpc_delve_reply_missing_id", "method", method).Wrap(err)
		}
		if uint64(gotID) != id {
			// A reply for a stale id could only arrive here if some
			// other synchronous caller raced this one; the host never
			// issues overlapping RPCDelve calls, so this is a protocol
			// violation rather than something to queue and retry.
			return View{}, protocolViolation("rpc_delve_reply_id_mismatch", "method", method, "want", id, "got", gotID).Errorf("reply id did not match the request just sent")
		}

		if reply.Has("error") {
			raw, _ := reply.Raw("error")
			return View{}, protocolViolation("rpc_delve_error_reply", "method", method, "error", string(raw)).Errorf("node returned an error reply")
		}

		if guide == "" {
			raw, err := reply.Raw("result")
			if err != nil {
				return View{}, protocolViolation("rpc_delve_missing_result", "method", method).Wrap(err)
			}
			return NewView(raw), nil
		}

		val, _, err := reply.Delve(fmt.Sprintf(".result%s", guide))
		if err != nil {
			return View{}, protocolViolation("rpc_delve_guide_miss", "method", method, "guide", guide).Wrap(err)
		}
		return NewView(val), nil
	}
}
