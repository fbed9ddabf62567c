// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/wire"
)

// EventSink receives everything the peer learns from the remote node.  All
// methods except NetworkIsReachable are invoked from the connection's receive
// goroutine, one at a time and in wire order, so an implementation must not
// block for long.  Methods may call back into the Peer, including the Send
// methods and Disconnect.
//
// Embed NoopSink to implement only the events of interest.
type EventSink interface {
	// Connected is invoked once the TCP connection is established, before
	// the version handshake.
	Connected(p *Peer)

	// HandshakeComplete is invoked when both version and verack messages
	// have been exchanged.  Post-handshake sends are allowed from here on.
	HandshakeComplete(p *Peer)

	// Disconnected is invoked exactly once per Connect that got past the
	// network reachability check, after the connection was torn down.  The
	// cause is nil when Disconnect was called locally and a *Error
	// otherwise.
	Disconnected(p *Peer, cause error)

	// RelayedPeers is invoked with the full node addresses from an addr
	// message that answered our getaddr.
	RelayedPeers(p *Peer, addrs []*wire.NetAddress)

	// RelayedTx is invoked for every transaction received.
	RelayedTx(p *Peer, tx *btcutil.Tx)

	// HasTx is invoked when the peer announces a transaction that is
	// already known on this connection.
	HasTx(p *Peer, txHash chainhash.Hash)

	// RejectedTx is invoked when the peer rejects a transaction.
	RejectedTx(p *Peer, txHash chainhash.Hash, code wire.RejectCode)

	// RelayedBlock is invoked with each merkle block once all of its
	// matched transactions arrived, and with each header from a headers
	// message.
	RelayedBlock(p *Peer, block *MerkleBlock)

	// NotFound is invoked with the hashes the peer could not serve.
	NotFound(p *Peer, txHashes, blockHashes []chainhash.Hash)

	// RequestedTx returns the transaction the peer asked for in a getdata
	// or nil if it is unknown.
	RequestedTx(p *Peer, txHash chainhash.Hash) *btcutil.Tx

	// NetworkIsReachable reports whether a connection attempt makes sense.
	// It is called from Connect on the caller's goroutine.
	NetworkIsReachable(p *Peer) bool
}

// NoopSink implements EventSink by ignoring every event.  The network is
// always reported reachable.
type NoopSink struct{}

// Ensure NoopSink implements the EventSink interface.
var _ EventSink = NoopSink{}

func (NoopSink) Connected(*Peer)                                    {}
func (NoopSink) HandshakeComplete(*Peer)                            {}
func (NoopSink) Disconnected(*Peer, error)                          {}
func (NoopSink) RelayedPeers(*Peer, []*wire.NetAddress)             {}
func (NoopSink) RelayedTx(*Peer, *btcutil.Tx)                       {}
func (NoopSink) HasTx(*Peer, chainhash.Hash)                        {}
func (NoopSink) RejectedTx(*Peer, chainhash.Hash, wire.RejectCode)  {}
func (NoopSink) RelayedBlock(*Peer, *MerkleBlock)                   {}
func (NoopSink) NotFound(*Peer, []chainhash.Hash, []chainhash.Hash) {}
func (NoopSink) RequestedTx(*Peer, chainhash.Hash) *btcutil.Tx      { return nil }
func (NoopSink) NetworkIsReachable(*Peer) bool                      { return true }
