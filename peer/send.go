// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/wire"
)

// withConnection runs fn with the current connection while holding the peer
// mutex shared, so the socket can't be closed while fn writes to it.
func (p *Peer) withConnection(requireHandshake bool, fn func(c *connection) error) error {
	p.mtx.RLock()
	defer p.mtx.RUnlock()

	c := p.conn
	if c == nil || p.status != StatusConnected || c.stopping() {
		return peerError(ErrNotConnected, "peer is not connected")
	}
	if requireHandshake && !c.handshakeComplete() {
		return peerError(ErrHandshakeIncomplete,
			"version handshake is not complete")
	}
	return fn(c)
}

// getHeadersMsg returns a getheaders message for locator and stopHash.
func getHeadersMsg(locator []*chainhash.Hash, stopHash *chainhash.Hash) (*wire.MsgGetHeaders, error) {
	msg := wire.NewMsgGetHeaders()
	msg.HashStop = *stopHash
	for _, hash := range locator {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// getBlocksMsg returns a getblocks message for locator and stopHash.  It
// returns nil when the request repeats the previous one.
func (c *connection) getBlocksMsg(locator []*chainhash.Hash, stopHash *chainhash.Hash) (*wire.MsgGetBlocks, error) {
	// Extract the begin hash from the block locator, if one was specified,
	// to use for filtering duplicate getblocks requests.
	var beginHash *chainhash.Hash
	if len(locator) > 0 {
		beginHash = locator[0]
	}

	c.flagsMtx.Lock()
	defer c.flagsMtx.Unlock()

	// Filter duplicate getblocks requests.
	isDuplicate := c.prevGetBlocksStop != nil && c.prevGetBlocksBegin != nil &&
		beginHash != nil && stopHash.IsEqual(c.prevGetBlocksStop) &&
		beginHash.IsEqual(c.prevGetBlocksBegin)
	if isDuplicate {
		log.Tracef("Filtering duplicate [getblocks] with begin "+
			"hash %v, stop hash %v", beginHash, stopHash)
		return nil, nil
	}

	msg := wire.NewMsgGetBlocks(stopHash)
	for _, hash := range locator {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			return nil, err
		}
	}

	// Update the previous getblocks request information for filtering
	// duplicates.
	c.prevGetBlocksBegin = beginHash
	c.prevGetBlocksStop = stopHash
	c.sentGetBlocks = true
	return msg, nil
}

// getDataMsg returns a getdata message requesting txHashes as transactions
// and blockHashes as filtered blocks.  The transactions are marked known since
// the peer will send them.
func (c *connection) getDataMsg(txHashes, blockHashes []chainhash.Hash) (*wire.MsgGetData, error) {
	count := len(txHashes) + len(blockHashes)
	if maxHashes := c.p.cfg.MaxGetDataHashes; count > maxHashes {
		str := fmt.Sprintf("getdata for %d items, max is %d", count,
			maxHashes)
		return nil, peerError(ErrTooManyHashes, str)
	}

	msg := wire.NewMsgGetDataSizeHint(uint(count))
	for i := range txHashes {
		iv := wire.NewInvVect(wire.InvTypeTx, &txHashes[i])
		if err := msg.AddInvVect(iv); err != nil {
			return nil, err
		}
		c.knownTx.Add(txHashes[i])
	}
	for i := range blockHashes {
		iv := wire.NewInvVect(wire.InvTypeFilteredBlock, &blockHashes[i])
		if err := msg.AddInvVect(iv); err != nil {
			return nil, err
		}
	}

	// The flag must be set before the request goes out since the answer
	// may arrive before the write returns.
	c.flagsMtx.Lock()
	c.sentGetData = true
	c.flagsMtx.Unlock()
	return msg, nil
}

// pingMsg returns a ping message with a fresh nonce and registers done to be
// called when the matching pong arrives.
func (c *connection) pingMsg(done func(success bool)) *wire.MsgPing {
	nonce, err := wire.RandomUint64()
	if err != nil {
		// Fall back to a nonce that is still unique per connection.
		nonce = uint64(time.Now().UnixNano())
	}

	c.flagsMtx.Lock()
	c.pendingPings = append(c.pendingPings, pendingPing{
		nonce: nonce,
		sent:  time.Now(),
		done:  done,
	})
	c.flagsMtx.Unlock()

	return wire.NewMsgPing(nonce)
}

// SendFilterLoad loads the bloom filter msg on the remote peer.  Transactions,
// merkle blocks and transaction inventories are only accepted from the peer
// after a filter was sent (or data was requested with SendGetData).  Sending a
// filter clears the filter update hint and allows another mempool request.
//
// This function is safe for concurrent access.
func (p *Peer) SendFilterLoad(msg *wire.MsgFilterLoad) error {
	return p.withConnection(true, func(c *connection) error {
		c.flagsMtx.Lock()
		c.sentFilter = true
		c.sentMempool = false
		c.flagsMtx.Unlock()
		p.needsFilterUpdate.Store(false)

		return c.write(msg)
	})
}

// SendMempool asks the remote peer for the transactions in its mempool.  The
// hashes in known are marked known on this connection so they are reported
// through HasTx instead of being requested.  When done is not nil it is called
// with true once the peer has answered, or with false if the connection ends
// first.
//
// Only one mempool request may be sent per loaded filter;
// ErrDuplicateRequest is returned otherwise and done is not called.
//
// This function is safe for concurrent access.
func (p *Peer) SendMempool(known []chainhash.Hash, done func(success bool)) error {
	return p.withConnection(true, func(c *connection) error {
		c.flagsMtx.Lock()
		if c.sentMempool || (done != nil && c.mempoolDone != nil) {
			c.flagsMtx.Unlock()
			return peerError(ErrDuplicateRequest,
				"mempool request already sent")
		}
		c.sentMempool = true
		if done != nil {
			c.mempoolDone = done
		}
		c.flagsMtx.Unlock()

		for _, hash := range known {
			c.knownTx.Add(hash)
		}
		return c.write(wire.NewMsgMemPool())
	})
}

// SendGetHeaders sends a getheaders message for the provided block locator
// and stop hash.  The headers are delivered through RelayedBlock and the sync
// continues on its own until it reaches the earliest key time.
//
// This function is safe for concurrent access.
func (p *Peer) SendGetHeaders(locator []*chainhash.Hash, stopHash *chainhash.Hash) error {
	msg, err := getHeadersMsg(locator, stopHash)
	if err != nil {
		return err
	}
	return p.withConnection(true, func(c *connection) error {
		log.Debugf("Requesting headers from %s with %d locators", p,
			len(locator))
		return c.write(msg)
	})
}

// SendGetBlocks sends a getblocks message for the provided block locator and
// stop hash.  It will ignore back to back duplicate requests.
//
// This function is safe for concurrent access.
func (p *Peer) SendGetBlocks(locator []*chainhash.Hash, stopHash *chainhash.Hash) error {
	return p.withConnection(true, func(c *connection) error {
		msg, err := c.getBlocksMsg(locator, stopHash)
		if err != nil || msg == nil {
			return err
		}
		return c.write(msg)
	})
}

// SendInv announces txHashes to the remote peer.  Hashes already known on this
// connection are left out, so announcing the same transaction twice sends it
// at most once.
//
// This function is safe for concurrent access.
func (p *Peer) SendInv(txHashes []chainhash.Hash) error {
	return p.withConnection(true, func(c *connection) error {
		msg := wire.NewMsgInv()
		for i := range txHashes {
			if !c.knownTx.AddNew(txHashes[i]) {
				continue
			}
			iv := wire.NewInvVect(wire.InvTypeTx, &txHashes[i])
			if err := msg.AddInvVect(iv); err != nil {
				return err
			}
		}
		if len(msg.InvList) == 0 {
			return nil
		}
		return c.write(msg)
	})
}

// SendGetData requests txHashes as transactions and blockHashes as filtered
// blocks.  Requests for more than Config.MaxGetDataHashes items are rejected
// with ErrTooManyHashes and must be split by the caller.
//
// This function is safe for concurrent access.
func (p *Peer) SendGetData(txHashes, blockHashes []chainhash.Hash) error {
	if len(txHashes)+len(blockHashes) == 0 {
		return nil
	}
	return p.withConnection(true, func(c *connection) error {
		msg, err := c.getDataMsg(txHashes, blockHashes)
		if err != nil {
			log.Debugf("Can't send getdata to %s: %v", p, err)
			return err
		}
		return c.write(msg)
	})
}

// SendGetAddr asks the remote peer for addresses of other nodes.  They are
// delivered through RelayedPeers.  Only one request may be sent per
// connection.
//
// This function is safe for concurrent access.
func (p *Peer) SendGetAddr() error {
	return p.withConnection(true, func(c *connection) error {
		c.flagsMtx.Lock()
		if c.sentGetAddr {
			c.flagsMtx.Unlock()
			return peerError(ErrDuplicateRequest,
				"getaddr request already sent")
		}
		c.sentGetAddr = true
		c.flagsMtx.Unlock()

		return c.write(wire.NewMsgGetAddr())
	})
}

// SendPing sends a ping to the remote peer.  When done is not nil it is
// called with true when the matching pong arrives, or with false if the
// connection ends first.  The round trip updates PingTime.
//
// This function is safe for concurrent access.
func (p *Peer) SendPing(done func(success bool)) error {
	return p.withConnection(true, func(c *connection) error {
		return c.write(c.pingMsg(done))
	})
}

// SendReject sends a reject message for command with the provided code and
// reason.  The hash is included for tx and block rejects and may be nil
// otherwise.
//
// This function is safe for concurrent access.
func (p *Peer) SendReject(command string, code wire.RejectCode, reason string,
	hash *chainhash.Hash) error {

	msg := wire.NewMsgReject(command, code, reason)
	if command == wire.CmdTx || command == wire.CmdBlock {
		if hash == nil {
			log.Warnf("Sending a reject message for command "+
				"type %v which should have specified a hash "+
				"but does not", command)
			hash = &zeroHash
		}
		msg.Hash = *hash
	}
	return p.withConnection(false, func(c *connection) error {
		return c.write(msg)
	})
}

// RerequestBlocks requests again every block announced on this connection
// starting with fromBlock, typically after the filter was updated so matches
// from the new wallet addresses are found.  Blocks announced before
// fromBlock are forgotten.  Nothing is sent when fromBlock was never
// announced.
//
// This function is safe for concurrent access.
func (p *Peer) RerequestBlocks(fromBlock chainhash.Hash) error {
	return p.withConnection(true, func(c *connection) error {
		hashes := c.knownBlocks.TrimBefore(fromBlock)
		if len(hashes) == 0 {
			return nil
		}

		log.Debugf("Re-requesting %d block(s) from %s", len(hashes), p)
		msg, err := c.getDataMsg(nil, hashes)
		if err != nil {
			return err
		}
		return c.write(msg)
	})
}
