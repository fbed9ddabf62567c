// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer_test

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spvkit/spvpeer/chaincfg"
	"github.com/spvkit/spvpeer/peer"
	"github.com/spvkit/spvpeer/wire"
)

// mockRemoteNode answers the version handshake on conn like a full node
// would.  It returns once conn is closed.
func mockRemoteNode(conn net.Conn, params *chaincfg.Params) {
	defer conn.Close()

	fr := wire.NewFrameReader(conn, params.Net, 0)
	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			return
		}
		if frame.Command != wire.CmdVersion {
			continue
		}

		me := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"),
			18444, wire.SFNodeNetwork|wire.SFNodeBloom)
		you := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), 0, 0)
		version := wire.NewMsgVersion(me, you, 1, 0)
		version.Services = me.Services

		// Reading must go on while writing since the peer answers
		// the version before it reads the verack.
		go func() {
			wire.WriteMessage(conn, version, wire.ProtocolVersion,
				params.Net)
			wire.WriteMessage(conn, wire.NewMsgVerAck(),
				wire.ProtocolVersion, params.Net)
		}()
	}
}

// handshakeSink reports the end of the handshake on a channel.
type handshakeSink struct {
	peer.NoopSink
	done chan struct{}
}

func (s *handshakeSink) HandshakeComplete(p *peer.Peer) {
	fmt.Printf("handshake complete, remote services %v\n", p.Services())
	close(s.done)
}

func (s *handshakeSink) Disconnected(p *peer.Peer, cause error) {
	fmt.Printf("disconnected, cause %v\n", cause)
}

// This example demonstrates connecting a peer and waiting for the version
// handshake.  The Dial hook hands the peer one end of an in-memory pipe so the
// example runs without a network; leave it unset to dial over TCP.
func Example_connect() {
	params := &chaincfg.RegressionNetParams
	sink := &handshakeSink{done: make(chan struct{})}
	cfg := &peer.Config{
		ChainParams:      params,
		UserAgentName:    "example",
		UserAgentVersion: "1.0.0",
		Dial: func(context.Context, string, string) (net.Conn, error) {
			local, remote := net.Pipe()
			go mockRemoteNode(remote, params)
			return local, nil
		},
	}

	na := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), 18444,
		wire.SFNodeNetwork)
	p := peer.New(na, cfg, sink)
	p.Connect()

	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		fmt.Println("handshake timeout")
	}

	p.Disconnect()
	p.WaitForDisconnect()

	// Output:
	// handshake complete, remote services SFNodeNetwork|SFNodeBloom
	// disconnected, cause <nil>
}
