// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

//go:build integration

package main

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/clnplugin/host/pkg/pluginhost"
)

func TestEchoPlugin(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Echo Plugin Integration Suite")
}

// fakeNode drives the plugin binary's stdin/stdout the way lightningd
// would, and answers listconfigs on a throwaway Unix socket so the
// plugin's init handshake can complete.
type fakeNode struct {
	hostStdin  *os.File // the plugin reads from this end
	hostStdout *os.File // the plugin writes to this end

	nodeIn  *os.File // the node writes requests here
	nodeOut *os.File // the node reads replies here

	rpcFile  string
	listener net.Listener
}

func newFakeNode(dir string) *fakeNode {
	rpcFile := filepath.Join(dir, "lightning-rpc")
	listener, err := net.Listen("unix", rpcFile)
	Expect(err).NotTo(HaveOccurred())

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64*1024)
		for {
			frame, err := readOneFrame(conn, buf)
			if err != nil {
				return
			}
			id, _ := jsonIntField(frame, "id")
			reply := `{"jsonrpc":"2.0","id":` + strconv.FormatInt(id, 10) + `,"result":{"allow-deprecated-apis":false}}`
			if _, err := conn.Write([]byte(reply + "\n\n")); err != nil {
				return
			}
		}
	}()

	stdinR, stdinW, err := os.Pipe()
	Expect(err).NotTo(HaveOccurred())
	stdoutR, stdoutW, err := os.Pipe()
	Expect(err).NotTo(HaveOccurred())

	return &fakeNode{
		hostStdin:  stdinR,
		hostStdout: stdoutW,
		nodeIn:     stdinW,
		nodeOut:    stdoutR,
		rpcFile:    rpcFile,
		listener:   listener,
	}
}

func (n *fakeNode) send(raw string) {
	_, err := n.nodeIn.Write([]byte(raw + "\n\n"))
	Expect(err).NotTo(HaveOccurred())
}

func (n *fakeNode) readFrame() string {
	buf := make([]byte, 64*1024)
	frame, err := readOneFrame(n.nodeOut, buf)
	Expect(err).NotTo(HaveOccurred())
	return string(frame)
}

func (n *fakeNode) close() {
	n.nodeIn.Close()
	n.listener.Close()
}

// readOneFrame reads until it has seen a "\n\n" delimiter, the same
// framing internal/rpccore.FrameReader implements; kept independent
// of that package here since this suite only exercises the public
// pluginhost surface.
func readOneFrame(r io.Reader, buf []byte) ([]byte, error) {
	var acc []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if idx := indexDoubleNewline(acc); idx >= 0 {
				return acc[:idx], nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

func indexDoubleNewline(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\n' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

func jsonIntField(raw []byte, field string) (int64, error) {
	marker := `"` + field + `":`
	idx := -1
	for i := 0; i+len(marker) <= len(raw); i++ {
		if string(raw[i:i+len(marker)]) == marker {
			idx = i + len(marker)
			break
		}
	}
	if idx < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	end := idx
	for end < len(raw) && (raw[end] == '-' || (raw[end] >= '0' && raw[end] <= '9')) {
		end++
	}
	return strconv.ParseInt(string(raw[idx:end]), 10, 64)
}

var _ = Describe("echoplugin end-to-end", func() {
	var (
		node    *fakeNode
		runDone chan error
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		node = newFakeNode(dir)

		scfg := newServeConfig(&runtimeConfig{})
		scfg.Stdin = node.hostStdin
		scfg.Stdout = node.hostStdout

		host, err := pluginhost.BuildHost(scfg)
		Expect(err).NotTo(HaveOccurred())

		runDone = make(chan error, 1)
		go func() { runDone <- host.Run() }()
	})

	AfterEach(func() {
		node.close()
	})

	It("answers getmanifest without requiring init first", func() {
		node.send(`{"jsonrpc":"2.0","id":1,"method":"getmanifest","params":{}}`)

		var manifest string
		Eventually(func() string {
			manifest = node.readFrame()
			return manifest
		}, 2*time.Second).Should(ContainSubstring(`"rpcmethods"`))
	})

	It("completes the handshake and echoes a message", func() {
		node.send(`{"jsonrpc":"2.0","id":1,"method":"getmanifest","params":{}}`)
		node.readFrame()

		initReq := `{"jsonrpc":"2.0","id":2,"method":"init","params":{` +
			`"configuration":{"lightning-dir":"` + GinkgoT().TempDir() + `","network":"regtest","rpc-file":"` + node.rpcFile + `"},` +
			`"options":{"echoplugin-prefix":"> "}}}`
		node.send(initReq)
		Eventually(func() string { return node.readFrame() }, 2*time.Second).Should(ContainSubstring(`"result"`))

		node.send(`{"jsonrpc":"2.0","id":3,"method":"echo","params":{"message":"hello"}}`)
		Eventually(func() string { return node.readFrame() }, 2*time.Second).Should(ContainSubstring("\"\\u003e hello\""))
	})

	It("shuts down cleanly when the node closes stdin", func() {
		node.send(`{"jsonrpc":"2.0","id":1,"method":"getmanifest","params":{}}`)
		node.readFrame()

		node.nodeIn.Close()

		Eventually(runDone, 2*time.Second).Should(Receive())
	})
})
