// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/connmgr"
	"github.com/spvkit/spvpeer/internal/addrbook"
	"github.com/spvkit/spvpeer/internal/log"
	"github.com/spvkit/spvpeer/peer"
	"github.com/spvkit/spvpeer/wire"
)

const (
	// requiredServices are the services a peer must offer to serve a
	// wallet filtered blocks.
	requiredServices = wire.SFNodeNetwork | wire.SFNodeBloom

	// retryInterval is the time waited before the next connection attempt
	// after a peer was lost.
	retryInterval = 5 * time.Second

	// reachabilityInterval is how often a peer waiting for the network
	// retries.
	reachabilityInterval = 10 * time.Second

	// seedTimeout bounds the wait for the first DNS seed to answer.
	seedTimeout = 30 * time.Second
)

// zeroHash is the stop hash meaning "as many as possible".
var zeroHash chainhash.Hash

// spvNode drives a single peer connection for a set of watched addresses.  It
// implements peer.EventSink.
type spvNode struct {
	cfg          *config
	book         *addrbook.Book
	chain        *headerChain
	filter       *wire.MsgFilterLoad
	lookup       connmgr.LookupFunc
	disconnected chan error

	blocks  atomic.Uint64
	headers atomic.Uint64
	txs     atomic.Uint64
}

// Ensure spvNode implements the peer.EventSink interface.
var _ peer.EventSink = (*spvNode)(nil)

// newSpvNode returns a node for cfg storing relayed peers in book.
func newSpvNode(cfg *config, book *addrbook.Book, filter *wire.MsgFilterLoad) *spvNode {
	torProxy := ""
	if cfg.UseTor {
		torProxy = cfg.Proxy
	}
	return &spvNode{
		cfg:          cfg,
		book:         book,
		chain:        newHeaderChain(cfg.params),
		filter:       filter,
		lookup:       connmgr.NewLookupFunc(torProxy),
		disconnected: make(chan error, 1),
	}
}

// Connected is invoked once the TCP connection is up.
func (n *spvNode) Connected(p *peer.Peer) {
	spvcLog.Infof("Connected to %s", p)
}

// HandshakeComplete loads the filter and starts the sync.
func (n *spvNode) HandshakeComplete(p *peer.Peer) {
	spvcLog.Infof("Handshake with %s complete (%s, protocol %d, last "+
		"block %d, services %v)", p, p.UserAgent(), p.ProtocolVersion(),
		p.LastBlock(), p.Services())

	if err := p.SendFilterLoad(n.filter); err != nil {
		spvcLog.Errorf("Unable to load filter on %s: %v", p, err)
		return
	}
	if err := p.SendGetAddr(); err != nil {
		spvcLog.Warnf("Unable to request addresses from %s: %v", p, err)
	}
	err := p.SendMempool(nil, func(success bool) {
		if success {
			spvcLog.Debugf("Mempool of %s received", p)
		}
	})
	if err != nil {
		spvcLog.Warnf("Unable to request mempool from %s: %v", p, err)
	}
	if err := p.SendGetHeaders(n.chain.locator(), &zeroHash); err != nil {
		spvcLog.Warnf("Unable to request headers from %s: %v", p, err)
	}
}

// Disconnected hands the cause to the run loop.
func (n *spvNode) Disconnected(p *peer.Peer, cause error) {
	if cause != nil {
		spvcLog.Infof("Disconnected from %s: %v", p, cause)
	} else {
		spvcLog.Infof("Disconnected from %s", p)
	}
	select {
	case n.disconnected <- cause:
	default:
	}
}

// RelayedPeers stores the full nodes the peer knows about.
func (n *spvNode) RelayedPeers(p *peer.Peer, addrs []*wire.NetAddress) {
	if err := n.book.Put(addrs...); err != nil {
		spvcLog.Warnf("Unable to store addresses from %s: %v", p, err)
		return
	}
	count, _ := n.book.Count()
	spvcLog.Infof("Received %d %s from %s (%d known)", len(addrs),
		log.PickNoun(uint64(len(addrs)), "address", "addresses"), p, count)
}

// RelayedTx logs every transaction matching the filter.
func (n *spvNode) RelayedTx(p *peer.Peer, tx *btcutil.Tx) {
	n.txs.Add(1)
	msgTx := tx.MsgTx()
	spvcLog.Infof("Transaction %s from %s (%d inputs, %d outputs)",
		tx.Hash(), p, len(msgTx.TxIn), len(msgTx.TxOut))
}

// HasTx is invoked for announcements of transactions already seen.
func (n *spvNode) HasTx(p *peer.Peer, txHash chainhash.Hash) {
	spvcLog.Tracef("Peer %s has transaction %s", p, txHash)
}

// RejectedTx logs rejects of transactions.
func (n *spvNode) RejectedTx(p *peer.Peer, txHash chainhash.Hash, code wire.RejectCode) {
	spvcLog.Warnf("Peer %s rejected transaction %s: %v", p, txHash, code)
}

// RelayedBlock extends the header chain with block and advertises the new
// height on the peer.
func (n *spvNode) RelayedBlock(p *peer.Peer, block *peer.MerkleBlock) {
	height, ok := n.chain.connect(&block.Header)
	if !ok {
		spvcLog.Debugf("Orphan block %s from %s", block.BlockHash(), p)
		return
	}
	p.SetCurrentBlockHeight(n.chain.bestHeight())

	// Blocks from a headers message carry no transaction count.
	if block.TotalTransactions == 0 {
		if n.headers.Add(1)%wire.MaxBlockHeadersPerMsg == 0 {
			spvcLog.Infof("Synced headers to height %d (%s)", height,
				block.Header.Timestamp)
		}
		return
	}

	n.blocks.Add(1)
	if len(block.MatchedTxHashes) > 0 {
		spvcLog.Infof("Block %s at height %d matched %d %s", block.BlockHash(),
			height, len(block.MatchedTxHashes),
			log.PickNoun(uint64(len(block.MatchedTxHashes)), "transaction",
				"transactions"))
		return
	}
	spvcLog.Debugf("Block %s at height %d", block.BlockHash(), height)
}

// NotFound logs the hashes the peer could not serve.
func (n *spvNode) NotFound(p *peer.Peer, txHashes, blockHashes []chainhash.Hash) {
	spvcLog.Debugf("Peer %s did not find %d transactions and %d blocks", p,
		len(txHashes), len(blockHashes))
}

// RequestedTx returns nil since the node never announces transactions.
func (n *spvNode) RequestedTx(*peer.Peer, chainhash.Hash) *btcutil.Tx {
	return nil
}

// NetworkIsReachable reports whether any interface other than loopback is up.
// Regression test peers run locally so the network is always reachable then.
func (n *spvNode) NetworkIsReachable(*peer.Peer) bool {
	if n.cfg.RegressionTest {
		return true
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return true
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true
		}
	}
	return false
}

// resolvePeer returns the address of the host:port peer in addr.
func (n *spvNode) resolvePeer(addr string) (*wire.NetAddress, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := n.lookup(host)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("no addresses found for %s", host)
		}
		ip = ips[0]
	}
	return wire.NewNetAddressIPPort(ip, uint16(port), 0), nil
}

// seed fills the address book from the DNS seeds.  It returns once the first
// seed answered, after seedTimeout or when interrupted.
func (n *spvNode) seed(interrupt <-chan struct{}) {
	found := make(chan struct{}, len(n.cfg.params.DNSSeeds))
	connmgr.SeedFromDNS(n.cfg.params, requiredServices, n.lookup,
		func(addrs []*wire.NetAddress) {
			if err := n.book.Put(addrs...); err != nil {
				spvcLog.Warnf("Unable to store seeded addresses: %v",
					err)
				return
			}
			found <- struct{}{}
		})

	select {
	case <-found:
	case <-time.After(seedTimeout):
		spvcLog.Warnf("No DNS seed answered within %v", seedTimeout)
	case <-interrupt:
	}
}

// pickPeer returns the address to connect to next: the --connect peer, a
// random full node from the address book or, with an empty book, one found by
// DNS seeding.
func (n *spvNode) pickPeer(interrupt <-chan struct{}) (*wire.NetAddress, error) {
	if n.cfg.Connect != "" {
		return n.resolvePeer(n.cfg.Connect)
	}

	na, err := n.book.Random(requiredServices)
	if !errors.Is(err, addrbook.ErrEmpty) || n.cfg.DisableDNSSeed ||
		len(n.cfg.params.DNSSeeds) == 0 {

		return na, err
	}

	spvcLog.Infof("Address book is empty, querying DNS seeds")
	n.seed(interrupt)
	return n.book.Random(requiredServices)
}

// serve connects to na and blocks until the connection is gone.  It returns
// whether the shutdown was requested and the disconnect cause.
func (n *spvNode) serve(na *wire.NetAddress, interrupt <-chan struct{}) (bool, error) {
	p := peer.New(na, n.cfg.peerConfig(), n)
	p.SetEarliestKeyTime(n.cfg.earliestKeyTime)
	p.SetCurrentBlockHeight(n.chain.bestHeight())
	p.Connect()

	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pingWatchdog(p, n.cfg.PingInterval, quit)
	}()
	defer func() {
		close(quit)
		wg.Wait()
	}()

	retry := time.NewTicker(reachabilityInterval)
	defer retry.Stop()
	for {
		select {
		case cause := <-n.disconnected:
			p.WaitForDisconnect()
			return false, cause

		case <-retry.C:
			// Only a peer waiting for the network acts on this.
			p.Connect()

		case <-interrupt:
			p.Disconnect()
			p.WaitForDisconnect()
			select {
			case <-n.disconnected:
			default:
			}
			return true, nil
		}
	}
}

// run keeps one peer connected until interrupt is closed.  Peers that can not
// be reached are forgotten.
func (n *spvNode) run(interrupt <-chan struct{}) {
	for {
		na, err := n.pickPeer(interrupt)
		switch {
		case interruptRequested(interrupt):
			return

		case err != nil:
			spvcLog.Warnf("Unable to find a peer: %v", err)

		default:
			interrupted, cause := n.serve(na, interrupt)
			if interrupted {
				return
			}
			if n.cfg.Connect == "" && peer.IsErrorCode(cause, peer.ErrConnectFailed) {
				if err := n.book.Remove(na); err != nil {
					spvcLog.Warnf("Unable to forget %v: %v", na.Addr(), err)
				}
			}
		}

		spvcLog.Infof("Retrying in %v (%d blocks, %d headers, %d "+
			"transactions received so far)", retryInterval,
			n.blocks.Load(), n.headers.Load(), n.txs.Load())
		select {
		case <-time.After(retryInterval):
		case <-interrupt:
			return
		}
	}
}
