// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/go-socks/socks"
	"github.com/davecgh/go-spew/spew"
	"github.com/spvkit/spvpeer/wire"
)

// pendingPing is a ping waiting for its pong.
type pendingPing struct {
	nonce uint64
	sent  time.Time
	done  func(success bool)
}

// connection is the state of a single connection to the remote peer.  It is
// created by Connect and discarded after teardown; a new Connect starts from
// scratch.
//
// The run goroutine owns the socket: it attaches it, is the only reader and
// closes it after the read loop returned.  Other goroutines write to it while
// holding the peer mutex shared and stop the connection by shutting the
// socket down.
type connection struct {
	p *Peer

	// conn is written once by run while holding the peer mutex
	// exclusively.
	conn net.Conn

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	cause    error

	localNonce uint64

	// flagsMtx guards the handshake sub-state, the one-shot request flags
	// and the pending callbacks below.
	flagsMtx           sync.Mutex
	versionSent        time.Time
	gotVersion         bool
	sentVerack         bool
	gotVerack          bool
	handshakeDone      bool
	sentGetAddr        bool
	sentFilter         bool
	sentGetData        bool
	sentMempool        bool
	sentGetBlocks      bool
	lastBlockHash      chainhash.Hash
	prevGetBlocksBegin *chainhash.Hash
	prevGetBlocksStop  *chainhash.Hash
	pendingPings       []pendingPing
	mempoolDone        func(success bool)

	knownTx     *knownTxHashes
	knownBlocks *knownBlockHashes

	// relayedTx holds the transactions the sink already has, either
	// relayed to it or served from it.  Requested transactions are only
	// in knownTx until they arrive.
	relayedTx *knownTxHashes

	// block is only accessed by the run goroutine.
	block blockState
}

// newConnection returns a connection for p that has not been started.
func newConnection(p *Peer) *connection {
	return &connection{
		p:           p,
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		knownTx:     newKnownTxHashes(p.cfg.MaxKnownTxHashes),
		knownBlocks: newKnownBlockHashes(p.cfg.MaxKnownBlockHashes),
		relayedTx:   newKnownTxHashes(p.cfg.MaxKnownTxHashes),
	}
}

// stop records cause as the reason for disconnecting unless one was recorded
// already, and shuts the socket down so the read loop exits.
//
// The caller must hold the peer mutex shared or be the run goroutine.
func (c *connection) stop(cause error) {
	c.stopOnce.Do(func() {
		c.cause = cause
		close(c.quit)
	})
	if c.conn != nil {
		shutdownConn(c.conn)
	}
}

// stopping reports whether stop was called.
func (c *connection) stopping() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// handshakeComplete reports whether both sides sent verack.
func (c *connection) handshakeComplete() bool {
	c.flagsMtx.Lock()
	defer c.flagsMtx.Unlock()
	return c.handshakeDone
}

// run dials the peer, starts the handshake and serves the connection until it
// is stopped.  It must be run as a goroutine.
func (c *connection) run() {
	defer c.teardown()

	p := c.p
	conn, err := p.dial(c.quit)
	if err != nil {
		log.Debugf("Connection to %s failed: %v", p, err)
		c.stop(wrapError(ErrConnectFailed, "connect failed", err))
		return
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(keepAlivePeriod)
	}

	p.mtx.Lock()
	c.conn = conn
	if c.stopping() {
		p.mtx.Unlock()
		return
	}
	p.status = StatusConnected
	p.mtx.Unlock()

	p.statsMtx.Lock()
	p.timeConnected = time.Now()
	p.statsMtx.Unlock()

	log.Debugf("Connected to %s", p)
	p.sink.Connected(p)

	if err := c.sendVersion(); err != nil {
		c.stop(err)
		return
	}

	c.inHandler()
}

// teardown closes the socket, fails every pending callback and reports the
// disconnect.  It runs on the run goroutine after everything else returned,
// so nothing reads the socket anymore when it is closed.
func (c *connection) teardown() {
	c.stop(nil)

	p := c.p
	p.mtx.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	if p.conn == c {
		p.conn = nil
		p.status = StatusDisconnected
	}
	p.mtx.Unlock()

	if blk, remaining := c.block.reset(); blk != nil {
		log.Debugf("Discarding incomplete merkleblock %s from %s, "+
			"expected %d more tx", blk.BlockHash(), p, remaining)
	}

	c.flagsMtx.Lock()
	pings := c.pendingPings
	c.pendingPings = nil
	mempoolDone := c.mempoolDone
	c.mempoolDone = nil
	c.flagsMtx.Unlock()

	for _, ping := range pings {
		if ping.done != nil {
			ping.done(false)
		}
	}
	if mempoolDone != nil {
		mempoolDone(false)
	}

	if c.cause != nil {
		log.Infof("Disconnected %s: %v", p, c.cause)
	} else {
		log.Infof("Disconnected %s", p)
	}
	p.sink.Disconnected(p, c.cause)
	close(c.done)
}

// inHandler reads frames until the connection is stopped or fails.  A frame
// with a bad checksum is dropped; every other framing error ends the
// connection.
func (c *connection) inHandler() {
	p := c.p
	fr := wire.NewFrameReader(c.conn, p.cfg.ChainParams.Net,
		p.cfg.MaxMessageLength)

	for !c.stopping() {
		frame, err := fr.ReadFrame()
		if n := fr.Skipped(); n > 0 {
			log.Debugf("Skipped %d bytes from %s looking for a "+
				"message header", n, p)
		}
		if err != nil {
			switch {
			case errors.Is(err, wire.ErrChecksumMismatch):
				log.Warnf("Dropping message from %s: %v", p, err)
				continue

			case errors.Is(err, wire.ErrPayloadTooLarge):
				log.Warnf("Disconnecting %s: %v", p, err)
				c.stop(wrapError(ErrOversizedMessage,
					"oversized message", err))

			default:
				// A read error after stop is the shutdown
				// itself.
				if !c.stopping() && err != io.EOF {
					log.Debugf("Can't read message from %s: "+
						"%v", p, err)
				}
				c.stop(wrapError(ErrConnectionLost,
					"connection lost", err))
			}
			return
		}

		if err := c.dispatch(frame); err != nil {
			log.Debugf("Disconnecting %s: %v", p, err)
			c.stop(err)
			return
		}
	}
}

// send writes msg to the socket while holding the peer mutex shared.  It is
// used by the run goroutine.
func (c *connection) send(msg wire.Message) error {
	c.p.mtx.RLock()
	defer c.p.mtx.RUnlock()
	return c.write(msg)
}

// write encodes msg and writes it to the socket with a single call.  A write
// error stops the connection.
//
// The caller must hold the peer mutex shared or be the run goroutine.
func (c *connection) write(msg wire.Message) error {
	p := c.p
	if c.conn == nil || c.stopping() {
		return peerError(ErrNotConnected, "peer is not connected")
	}

	frame, err := wire.EncodeMessage(msg, p.ProtocolVersion(),
		p.cfg.ChainParams.Net)
	if err != nil {
		return err
	}

	log.Debugf("%v", newLogClosure(func() string {
		// Debug summary of message.
		summary := messageSummary(msg)
		if len(summary) > 0 {
			summary = " (" + summary + ")"
		}
		return fmt.Sprintf("Sending %v%s to %s", msg.Command(),
			summary, p)
	}))
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(msg)
	}))
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(frame)
	}))

	if _, err := c.conn.Write(frame); err != nil {
		perr := wrapError(ErrConnectionLost, "write failed", err)
		c.stop(perr)
		return perr
	}
	return nil
}

// dial opens the connection to the peer, giving up after the connect
// timeout or once quit is closed.
func (p *Peer) dial(quit <-chan struct{}) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(),
		p.cfg.ConnectTimeout)
	defer cancel()

	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	dial := p.cfg.Dial
	if dial == nil {
		dial = p.defaultDial
	}
	return dial(ctx, "tcp", p.addr)
}

// defaultDial connects directly with TCP keep-alive enabled or through the
// configured SOCKS5 proxy.
func (p *Peer) defaultDial(ctx context.Context, network, addr string) (net.Conn, error) {
	if p.cfg.Proxy == "" {
		d := net.Dialer{KeepAlive: keepAlivePeriod}
		return d.DialContext(ctx, network, addr)
	}

	proxy := &socks.Proxy{
		Addr:         p.cfg.Proxy,
		Username:     p.cfg.ProxyUser,
		Password:     p.cfg.ProxyPass,
		TorIsolation: p.cfg.TorIsolation,
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	result := make(chan dialResult, 1)
	go func() {
		conn, err := proxy.DialTimeout(network, addr, p.cfg.ConnectTimeout)
		result <- dialResult{conn, err}
	}()

	select {
	case r := <-result:
		return r.conn, r.err
	case <-ctx.Done():
		// Close the connection should the proxy still succeed.
		go func() {
			if r := <-result; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
