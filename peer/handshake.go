// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spvkit/spvpeer/wire"
)

// localVersionMsg creates a version message that can be used to send to the
// remote peer.
func (c *connection) localVersionMsg() (*wire.MsgVersion, error) {
	p := c.p

	theirNA := p.na

	// The local address is only informational.  Fall back to the loopback
	// address when the connection doesn't have a usable one.
	ourNA, err := newNetAddress(c.conn.LocalAddr(), p.cfg.Services)
	if err != nil {
		port, _ := strconv.Atoi(p.cfg.ChainParams.DefaultPort)
		ourNA = wire.NewNetAddressIPPort(net.IPv4(127, 0, 0, 1),
			uint16(port), p.cfg.Services)
	}

	// Generate a unique nonce for this connection so self connections can
	// be detected.
	nonce, err := wire.RandomUint64()
	if err != nil {
		return nil, err
	}
	c.localNonce = nonce

	msg := wire.NewMsgVersion(ourNA, theirNA, nonce,
		p.currentBlockHeight.Load())
	if p.cfg.UserAgentName != "" {
		err := msg.AddUserAgent(p.cfg.UserAgentName,
			p.cfg.UserAgentVersion, p.cfg.UserAgentComments...)
		if err != nil {
			return nil, err
		}
	}

	msg.ProtocolVersion = int32(p.cfg.ProtocolVersion)
	msg.Services = p.cfg.Services
	msg.DisableRelayTx = !p.cfg.AllowRelayTx

	return msg, nil
}

// sendVersion sends our version message and starts the handshake clock.
func (c *connection) sendVersion() error {
	msg, err := c.localVersionMsg()
	if err != nil {
		return wrapError(ErrConnectFailed, "can't create version message",
			err)
	}

	c.flagsMtx.Lock()
	c.versionSent = time.Now()
	c.flagsMtx.Unlock()

	return c.send(msg)
}

// versionReceived reports whether the remote version message was accepted.
func (c *connection) versionReceived() bool {
	c.flagsMtx.Lock()
	defer c.flagsMtx.Unlock()
	return c.gotVersion
}

// handleVersionMsg is invoked when a peer receives a version bitcoin message.
// It records the remote peer's metadata, negotiates the protocol version and
// acknowledges with a verack.  Peers below the minimum protocol version are
// sent a reject and disconnected.
func (c *connection) handleVersionMsg(msg *wire.MsgVersion) error {
	p := c.p

	c.flagsMtx.Lock()
	if c.gotVersion {
		c.flagsMtx.Unlock()
		log.Debugf("Ignoring duplicate version message from %s", p)
		reject := wire.NewMsgReject(msg.Command(), wire.RejectDuplicate,
			"duplicate version message")
		return c.send(reject)
	}
	c.flagsMtx.Unlock()

	// Detect self connections.
	if msg.Nonce == c.localNonce {
		return peerError(ErrSelfConnection,
			"disconnecting peer connected to self")
	}

	// Notify and disconnect clients that have a protocol version that is
	// too old.
	if msg.ProtocolVersion < int32(p.cfg.MinProtocolVersion) {
		reason := fmt.Sprintf("protocol version must be %d or greater",
			p.cfg.MinProtocolVersion)
		reject := wire.NewMsgReject(msg.Command(), wire.RejectObsolete,
			reason)
		c.send(reject)

		str := fmt.Sprintf("protocol version %d not supported",
			msg.ProtocolVersion)
		return peerError(ErrUnsupportedVersion, str)
	}

	// Negotiate the protocol version and record the remote peer's details.
	p.statsMtx.Lock()
	p.advertisedProtoVer = uint32(msg.ProtocolVersion)
	p.protocolVersion = minUint32(p.protocolVersion, p.advertisedProtoVer)
	p.services = msg.Services
	p.userAgent = msg.UserAgent
	p.lastBlock = msg.LastBlock
	p.nonce = msg.Nonce
	pver := p.protocolVersion
	p.statsMtx.Unlock()

	log.Debugf("Negotiated protocol version %d for peer %s", pver, p)

	c.flagsMtx.Lock()
	c.gotVersion = true
	c.flagsMtx.Unlock()

	if err := c.send(wire.NewMsgVerAck()); err != nil {
		return err
	}

	c.flagsMtx.Lock()
	c.sentVerack = true
	c.flagsMtx.Unlock()

	c.maybeCompleteHandshake()
	return nil
}

// handleVerAckMsg is invoked when a peer receives a verack bitcoin message.
// The time since our version was sent is the first ping time sample.
func (c *connection) handleVerAckMsg() error {
	p := c.p

	c.flagsMtx.Lock()
	if c.gotVerack {
		c.flagsMtx.Unlock()
		log.Debugf("Got unexpected verack from %s", p)
		return nil
	}
	c.gotVerack = true
	rtt := time.Since(c.versionSent)
	c.flagsMtx.Unlock()

	p.statsMtx.Lock()
	p.pingTime = rtt
	p.statsMtx.Unlock()

	log.Debugf("Got verack from %s, handshake round trip %v", p, rtt)

	c.maybeCompleteHandshake()
	return nil
}

// maybeCompleteHandshake notifies the sink the first time both veracks were
// seen.
func (c *connection) maybeCompleteHandshake() {
	c.flagsMtx.Lock()
	complete := c.sentVerack && c.gotVerack && !c.handshakeDone
	if complete {
		c.handshakeDone = true
	}
	c.flagsMtx.Unlock()

	if !complete {
		return
	}

	p := c.p
	log.Infof("Connected to %s (version %d, agent %s, height %d)", p,
		p.Version(), sanitizeString(p.UserAgent(), wire.MaxUserAgentLen),
		p.LastBlock())
	p.sink.HandshakeComplete(p)
}

// minUint32 is a helper function to return the minimum of two uint32s.
// This avoids a math import and the need to cast to floats.
func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
