// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/spvkit/spvpeer/wire"
)

// Status is the connection state of a Peer.
type Status int32

// These constants define the states a Peer moves through.  A Peer starts
// disconnected, is connecting while waiting for the network or the TCP
// connect, and is connected once the socket is up.  The version handshake
// runs while connected; EventSink.HandshakeComplete marks its end.
const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

// Map of Status values back to their constant names for pretty printing.
var statusStrings = map[Status]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
}

// String returns the Status in human-readable form.
func (s Status) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown Status (%d)", int32(s))
}

// unknownPingTime is reported by PingTime until a round trip was measured.
const unknownPingTime = time.Duration(math.MaxInt64)

// Peer provides a single outbound connection to a bitcoin node for a light
// wallet.  It performs the version handshake, answers pings and getdata
// requests, reassembles filtered blocks and reports everything it learns to
// an EventSink.
//
// A Peer is created with New and may be connected and disconnected any
// number of times.  Each Connect starts one goroutine that owns the socket
// for the lifetime of that connection.  The Send methods may be called from
// any goroutine, including from within EventSink callbacks.
type Peer struct {
	// Wallet hints.  These must only be accessed atomically.
	earliestKeyTime    atomic.Int64
	currentBlockHeight atomic.Int32
	needsFilterUpdate  atomic.Bool

	na   *wire.NetAddress
	addr string
	cfg  Config
	sink EventSink

	// mtx guards the connection pointer and status transitions.  Writes to
	// the socket hold it shared; attaching and closing the socket hold it
	// exclusively.
	mtx               sync.RWMutex
	status            Status
	waitingForNetwork bool
	conn              *connection
	disconnected      chan struct{}

	// These fields are reported by the remote peer and are reset on every
	// Connect.
	statsMtx           sync.RWMutex
	protocolVersion    uint32 // negotiated protocol version
	advertisedProtoVer uint32 // protocol version advertised by remote
	services           wire.ServiceFlag
	userAgent          string
	lastBlock          int32
	nonce              uint64
	pingTime           time.Duration
	timeConnected      time.Time
}

// New returns a new disconnected peer for the node at na.  A nil sink is
// replaced by NoopSink.
func New(na *wire.NetAddress, cfg *Config, sink EventSink) *Peer {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if sink == nil {
		sink = NoopSink{}
	}

	// Copy the identity so it can't change under us.
	id := *na
	id.IP = append(net.IP(nil), na.IP...)

	c = c.withDefaults()
	p := &Peer{
		na:              &id,
		addr:            id.Addr(),
		cfg:             c,
		sink:            sink,
		protocolVersion: c.ProtocolVersion,
		pingTime:        unknownPingTime,
	}
	return p
}

// String returns the peer's address as host:port.
//
// This function is safe for concurrent access.
func (p *Peer) String() string {
	return p.addr
}

// Addr returns the peer's address as host:port.
//
// This function is safe for concurrent access.
func (p *Peer) Addr() string {
	return p.addr
}

// NA returns a copy of the peer's network address.
//
// This function is safe for concurrent access.
func (p *Peer) NA() *wire.NetAddress {
	na := *p.na
	na.IP = append(net.IP(nil), p.na.IP...)
	return &na
}

// Status returns the current connection status.
//
// This function is safe for concurrent access.
func (p *Peer) Status() Status {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.status
}

// Version returns the protocol version advertised by the remote peer.
//
// This function is safe for concurrent access.
func (p *Peer) Version() uint32 {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.advertisedProtoVer
}

// ProtocolVersion returns the negotiated protocol version.
//
// This function is safe for concurrent access.
func (p *Peer) ProtocolVersion() uint32 {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.protocolVersion
}

// Services returns the services flag of the remote peer.
//
// This function is safe for concurrent access.
func (p *Peer) Services() wire.ServiceFlag {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.services
}

// UserAgent returns the user agent of the remote peer.
//
// This function is safe for concurrent access.
func (p *Peer) UserAgent() string {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.userAgent
}

// LastBlock returns the best block height the remote peer reported in its
// version message.
//
// This function is safe for concurrent access.
func (p *Peer) LastBlock() int32 {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.lastBlock
}

// Nonce returns the nonce the remote peer sent in its version message.
//
// This function is safe for concurrent access.
func (p *Peer) Nonce() uint64 {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.nonce
}

// PingTime returns the round trip time to the remote peer.  It is measured
// by the handshake first and then smoothed over pings.  Until a measurement
// exists the maximum duration is returned.
//
// This function is safe for concurrent access.
func (p *Peer) PingTime() time.Duration {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.pingTime
}

// TimeConnected returns when the TCP connection was established.
//
// This function is safe for concurrent access.
func (p *Peer) TimeConnected() time.Time {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.timeConnected
}

// SetEarliestKeyTime sets the creation time of the oldest wallet key.  Header
// sync switches to filtered blocks once it reaches this time.
//
// This function is safe for concurrent access.
func (p *Peer) SetEarliestKeyTime(t time.Time) {
	p.earliestKeyTime.Store(t.Unix())
}

// EarliestKeyTime returns the time set by SetEarliestKeyTime.
//
// This function is safe for concurrent access.
func (p *Peer) EarliestKeyTime() time.Time {
	return time.Unix(p.earliestKeyTime.Load(), 0)
}

// SetCurrentBlockHeight sets the local best block height.  It is advertised
// in the version message and used to detect peers that stall the sync with
// short block inventories.
//
// This function is safe for concurrent access.
func (p *Peer) SetCurrentBlockHeight(height int32) {
	p.currentBlockHeight.Store(height)
}

// SetNeedsFilterUpdate records that wallet addresses were added and the bloom
// filter loaded on the peer is stale.  Block inventories are not requested
// until a new filter is sent with SendFilterLoad.
//
// This function is safe for concurrent access.
func (p *Peer) SetNeedsFilterUpdate() {
	p.needsFilterUpdate.Store(true)
}

// NeedsFilterUpdate reports whether SetNeedsFilterUpdate was called since the
// last filter was sent.
//
// This function is safe for concurrent access.
func (p *Peer) NeedsFilterUpdate() bool {
	return p.needsFilterUpdate.Load()
}

// Connect starts connecting to the remote peer and returns immediately.  It
// does nothing unless the peer is disconnected or waiting for the network.
//
// When the sink reports the network unreachable, the peer stays connecting
// and waits for Connect to be called again.  Otherwise a goroutine dials the
// peer and, once connected, sends the version message and serves the
// connection until it is lost or Disconnect is called.
//
// This function is safe for concurrent access.
func (p *Peer) Connect() {
	// Check shared first so a Connect on a live peer never waits behind a
	// blocked write.
	p.mtx.RLock()
	idle := p.status == StatusDisconnected || p.waitingForNetwork
	p.mtx.RUnlock()
	if !idle {
		return
	}

	p.mtx.Lock()
	if p.status != StatusDisconnected && !p.waitingForNetwork {
		p.mtx.Unlock()
		return
	}
	p.status = StatusConnecting
	p.mtx.Unlock()

	// The sink may call back into the peer so it is queried unlocked.
	reachable := p.sink.NetworkIsReachable(p)

	p.mtx.Lock()
	defer p.mtx.Unlock()

	// Disconnect may have raced with the reachability check.
	if p.status != StatusConnecting || p.conn != nil {
		return
	}
	if !reachable {
		log.Debugf("Network unreachable, delaying connection to %s", p)
		p.waitingForNetwork = true
		return
	}
	p.waitingForNetwork = false

	p.statsMtx.Lock()
	p.protocolVersion = p.cfg.ProtocolVersion
	p.advertisedProtoVer = 0
	p.services = 0
	p.userAgent = ""
	p.lastBlock = 0
	p.nonce = 0
	p.pingTime = unknownPingTime
	p.timeConnected = time.Time{}
	p.statsMtx.Unlock()

	c := newConnection(p)
	p.conn = c
	p.disconnected = c.done
	go c.run()
}

// Disconnect closes the connection.  It returns once the socket is shut down;
// teardown then completes on the connection goroutine, which reports
// EventSink.Disconnected with a nil cause.  Use WaitForDisconnect to wait for
// it.
//
// A peer waiting for the network goes back to disconnected without any
// event.
//
// This function is safe for concurrent access.
func (p *Peer) Disconnect() {
	p.mtx.RLock()
	c := p.conn
	if c != nil {
		c.stop(nil)
		p.mtx.RUnlock()
		return
	}
	pending := p.status == StatusConnecting
	p.mtx.RUnlock()

	if pending {
		p.mtx.Lock()
		if p.conn == nil && p.status == StatusConnecting {
			p.waitingForNetwork = false
			p.status = StatusDisconnected
			log.Debugf("Cancelled pending connection to %s", p)
		}
		p.mtx.Unlock()
	}
}

// WaitForDisconnect waits until the current connection, if any, was torn down
// and EventSink.Disconnected returned.  It must not be called from an
// EventSink callback.
func (p *Peer) WaitForDisconnect() {
	p.mtx.RLock()
	done := p.disconnected
	p.mtx.RUnlock()

	if done != nil {
		<-done
	}
}

// newNetAddress attempts to extract the IP address and port from the passed
// net.Addr interface and create a bitcoin NetAddress structure using that
// information.
func newNetAddress(addr net.Addr, services wire.ServiceFlag) (*wire.NetAddress, error) {
	// addr will be a net.TCPAddr when not using a proxy.
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		ip := tcpAddr.IP
		port := uint16(tcpAddr.Port)
		na := wire.NewNetAddressIPPort(ip, port, services)
		return na, nil
	}

	// addr will be a socks.ProxiedAddr when using a proxy.
	if proxiedAddr, ok := addr.(*socks.ProxiedAddr); ok {
		ip := net.ParseIP(proxiedAddr.Host)
		if ip == nil {
			ip = net.ParseIP("0.0.0.0")
		}
		port := uint16(proxiedAddr.Port)
		na := wire.NewNetAddressIPPort(ip, port, services)
		return na, nil
	}

	// For the most part, addr should be one of the two above cases, but
	// to be safe, fall back to trying to parse the information from the
	// address string as a last resort.
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}
	na := wire.NewNetAddressIPPort(ip, uint16(port), services)
	return na, nil
}
