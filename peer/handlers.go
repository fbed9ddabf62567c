// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/bloom"
	"github.com/spvkit/spvpeer/wire"
)

// zeroHash is the stop hash that asks for as many items as the peer sends.
var zeroHash chainhash.Hash

// handleAddrMsg is invoked when a peer receives an addr bitcoin message.
// Addresses are only accepted in answer to our getaddr, which keeps a peer
// from flooding us with unsolicited addresses.  Nodes that don't serve full
// blocks are skipped and timestamps are made conservative before the rest is
// relayed to the sink.
func (c *connection) handleAddrMsg(msg *wire.MsgAddr) error {
	p := c.p

	c.flagsMtx.Lock()
	asked := c.sentGetAddr
	c.flagsMtx.Unlock()
	if !asked {
		log.Debugf("Ignoring unsolicited addr message from %s", p)
		return nil
	}

	now := time.Now()
	addrs := make([]*wire.NetAddress, 0, len(msg.AddrList))
	for _, na := range msg.AddrList {
		if !na.HasService(wire.SFNodeNetwork) {
			continue
		}

		// Replace missing or far future timestamps, then age every
		// address a little so fresh peers rank above relayed ones.
		ts := na.Timestamp
		if ts.Unix() <= 0 || ts.After(now.Add(maxAddrFutureDrift)) {
			ts = now.Add(-unknownAddrAge)
		}
		addr := *na
		addr.Timestamp = ts.Add(-addrTimePenalty)
		addrs = append(addrs, &addr)
	}

	log.Debugf("Got %d addresses from %s, %d usable", len(msg.AddrList),
		p, len(addrs))
	if len(addrs) > 0 {
		p.sink.RelayedPeers(p, addrs)
	}
	return nil
}

// handleInvMsg is invoked when a peer receives an inv bitcoin message.
// Unknown transactions are requested, known ones reported through HasTx, and
// announced blocks are requested as filtered blocks.
func (c *connection) handleInvMsg(msg *wire.MsgInv) error {
	p := c.p

	var txHashes, blockHashes []chainhash.Hash
	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeTx:
			txHashes = append(txHashes, iv.Hash)
		case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
			blockHashes = append(blockHashes, iv.Hash)
		}
	}

	c.flagsMtx.Lock()
	sentFilter, sentGetData := c.sentFilter, c.sentGetData
	sentGetBlocks := c.sentGetBlocks
	c.flagsMtx.Unlock()

	if len(txHashes) > 0 && !sentFilter && !sentGetData {
		return peerError(ErrProtocolViolation,
			"got inv message before loading a filter")
	}
	if len(txHashes) > maxTxPerInv {
		str := fmt.Sprintf("too many transactions in inv, %d, max is %d",
			len(txHashes), maxTxPerInv)
		return peerError(ErrProtocolViolation, str)
	}

	// A peer that is further ahead than we are must announce full batches
	// of block hashes.  Short batches are a sign of a node trying to stall
	// the sync.
	height := int64(p.currentBlockHeight.Load())
	numBlocks := len(blockHashes)
	if height > 0 && numBlocks > 2 && numBlocks < maxBlockInvBeforeContinuation &&
		height+int64(c.knownBlocks.Len())+int64(numBlocks) < int64(p.LastBlock()) {

		str := fmt.Sprintf("non-standard inv, %d is fewer block hashes "+
			"than expected", numBlocks)
		return peerError(ErrProtocolViolation, str)
	}

	// Block announcements are only useful once a filter is loaded or a
	// block download was started.  The same single block announced twice
	// in a row is ignored.
	if !sentFilter && !sentGetBlocks {
		blockHashes = nil
	}
	c.flagsMtx.Lock()
	if len(blockHashes) == 1 {
		if blockHashes[0] == c.lastBlockHash {
			blockHashes = nil
		} else {
			c.lastBlockHash = blockHashes[0]
		}
	}
	mempoolDone := c.mempoolDone
	if len(txHashes) > 0 {
		c.mempoolDone = nil
	}
	c.flagsMtx.Unlock()

	if len(blockHashes) > 0 && p.NeedsFilterUpdate() {
		log.Debugf("Not requesting %d blocks from %s until the filter "+
			"is updated", len(blockHashes), p)
		blockHashes = nil
	}

	var request []chainhash.Hash
	for _, hash := range txHashes {
		if c.knownTx.Exists(hash) {
			p.sink.HasTx(p, hash)
			continue
		}
		request = append(request, hash)
	}
	for _, hash := range blockHashes {
		c.knownBlocks.Add(hash)
	}

	if len(request) > 0 || len(blockHashes) > 0 {
		getData, err := c.getDataMsg(request, blockHashes)
		if err != nil {
			log.Debugf("Can't request inventory from %s: %v", p, err)
		} else if err := c.send(getData); err != nil {
			return err
		}
	}

	// Request the next batch right away to keep the download going.
	if len(blockHashes) >= maxBlockInvBeforeContinuation {
		locator := []*chainhash.Hash{
			&blockHashes[len(blockHashes)-1], &blockHashes[0],
		}
		getBlocks, err := c.getBlocksMsg(locator, &zeroHash)
		if err != nil {
			return err
		}
		if getBlocks != nil {
			if err := c.send(getBlocks); err != nil {
				return err
			}
		}
	}

	// The first inv with transactions after a mempool request is the
	// answer to it.  A ping behind it tells when everything was sent.
	if len(txHashes) > 0 && mempoolDone != nil {
		log.Debugf("Got initial mempool response from %s", p)
		if err := c.send(c.pingMsg(mempoolDone)); err != nil {
			return err
		}
	}
	return nil
}

// handleTxMsg is invoked when a peer receives a tx bitcoin message.  A
// transaction is relayed the first time it arrives; a transaction the current
// merkle block is waiting for also completes that block once it was the last
// one missing.
func (c *connection) handleTxMsg(msg *wire.MsgTx) error {
	p := c.p

	c.flagsMtx.Lock()
	expected := c.sentFilter || c.sentGetData
	c.flagsMtx.Unlock()
	if !expected {
		return peerError(ErrProtocolViolation,
			"got tx message before loading a filter")
	}

	tx := msg.BtcutilTx()
	c.knownTx.Add(*tx.Hash())
	if c.relayedTx.AddNew(*tx.Hash()) {
		log.Debugf("Got tx %s from %s", tx.Hash(), p)
		p.sink.RelayedTx(p, tx)
	} else {
		log.Debugf("Got tx %s from %s again, not relaying", tx.Hash(), p)
	}

	if _, blk := c.block.addTx(tx); blk != nil {
		log.Debugf("Merkleblock %s from %s complete with %d tx",
			blk.BlockHash(), p, len(blk.Txs))
		p.sink.RelayedBlock(p, blk)
	}
	return nil
}

// handleHeadersMsg is invoked when a peer receives a headers bitcoin message.
// Header sync continues with the next getheaders while the headers are older
// than the earliest key time and switches to filtered blocks from there on.
func (c *connection) handleHeadersMsg(msg *wire.MsgHeaders) error {
	p := c.p

	numHeaders := len(msg.Headers)
	if numHeaders == 0 {
		return nil
	}

	first := msg.Headers[0].BlockHash()
	last := msg.Headers[numHeaders-1].BlockHash()
	cutoff := p.EarliestKeyTime().Add(-headersSyncSlack)

	switch {
	case !msg.Headers[numHeaders-1].Timestamp.Before(cutoff):
		// Find the first header the wallet might have transactions in
		// and download filtered blocks from there.
		i := 0
		for i < numHeaders && msg.Headers[i].Timestamp.Before(cutoff) {
			i++
		}
		var from chainhash.Hash
		if i > 0 {
			from = msg.Headers[i-1].BlockHash()
		} else {
			from = msg.Headers[0].PrevBlock
		}
		log.Debugf("Header sync with %s reached earliest key time at "+
			"%s, requesting blocks", p, from)

		getBlocks, err := c.getBlocksMsg([]*chainhash.Hash{&from}, &zeroHash)
		if err != nil {
			return err
		}
		if getBlocks != nil {
			if err := c.send(getBlocks); err != nil {
				return err
			}
		}

	case numHeaders >= wire.MaxBlockHeadersPerMsg:
		getHeaders, err := getHeadersMsg([]*chainhash.Hash{&last, &first},
			&zeroHash)
		if err != nil {
			return err
		}
		if err := c.send(getHeaders); err != nil {
			return err
		}

	default:
		str := fmt.Sprintf("non-standard headers message, %d is fewer "+
			"headers than expected", numHeaders)
		return peerError(ErrProtocolViolation, str)
	}

	for _, header := range msg.Headers {
		p.sink.RelayedBlock(p, &MerkleBlock{Header: *header})
	}
	return nil
}

// handleGetAddrMsg is invoked when a peer receives a getaddr bitcoin message.
// A wallet has no addresses to share so it answers with an empty list.
func (c *connection) handleGetAddrMsg() error {
	return c.send(wire.NewMsgAddr())
}

// handleGetDataMsg is invoked when a peer receives a getdata bitcoin message.
// Transactions the sink knows are sent, everything else is answered with a
// notfound message.
func (c *connection) handleGetDataMsg(msg *wire.MsgGetData) error {
	p := c.p

	if len(msg.InvList) > p.cfg.MaxGetDataHashes {
		log.Debugf("Dropping getdata from %s, %d is too many items, max "+
			"is %d", p, len(msg.InvList), p.cfg.MaxGetDataHashes)
		return nil
	}

	notFound := wire.NewMsgNotFound()
	for _, iv := range msg.InvList {
		if iv.Type == wire.InvTypeTx {
			tx := p.sink.RequestedTx(p, iv.Hash)
			if tx != nil {
				err := c.send(wire.NewMsgTx(tx.MsgTx()))
				if err == nil {
					c.knownTx.Add(iv.Hash)
					c.relayedTx.Add(iv.Hash)
					continue
				}
				if c.stopping() {
					return nil
				}
				log.Debugf("Can't send tx %s to %s: %v",
					iv.Hash, p, err)
			}
		}
		notFound.AddInvVect(iv)
	}

	if len(notFound.InvList) == 0 {
		return nil
	}
	return c.send(notFound)
}

// handleNotFoundMsg is invoked when a peer receives a notfound bitcoin
// message.
func (c *connection) handleNotFoundMsg(msg *wire.MsgNotFound) error {
	var txHashes, blockHashes []chainhash.Hash
	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeTx:
			txHashes = append(txHashes, iv.Hash)
		case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
			blockHashes = append(blockHashes, iv.Hash)
		}
	}

	if len(txHashes) > 0 || len(blockHashes) > 0 {
		c.p.sink.NotFound(c.p, txHashes, blockHashes)
	}
	return nil
}

// handlePingMsg is invoked when a peer receives a ping bitcoin message.  The
// nonce is echoed back in a pong.
func (c *connection) handlePingMsg(msg *wire.MsgPing) error {
	return c.send(wire.NewMsgPong(msg.Nonce))
}

// handlePongMsg is invoked when a peer receives a pong bitcoin message.  It
// completes the ping with the same nonce and folds the round trip into the
// ping time.  Pongs for unknown nonces are ignored.
func (c *connection) handlePongMsg(msg *wire.MsgPong) error {
	p := c.p

	c.flagsMtx.Lock()
	idx := -1
	for i := range c.pendingPings {
		if c.pendingPings[i].nonce == msg.Nonce {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.flagsMtx.Unlock()
		log.Debugf("Got unexpected pong %d from %s", msg.Nonce, p)
		return nil
	}
	ping := c.pendingPings[idx]
	c.pendingPings = append(c.pendingPings[:idx], c.pendingPings[idx+1:]...)
	c.flagsMtx.Unlock()

	rtt := time.Since(ping.sent)
	p.statsMtx.Lock()
	if p.pingTime == unknownPingTime {
		p.pingTime = rtt
	} else {
		p.pingTime = p.pingTime/2 + rtt/2
	}
	p.statsMtx.Unlock()

	if ping.done != nil {
		ping.done(true)
	}
	return nil
}

// handleMerkleBlockMsg is invoked when a peer receives a merkleblock bitcoin
// message.  The proof is verified against the header and the block is held
// back until the matched transactions not yet known on this connection
// arrived.
func (c *connection) handleMerkleBlockMsg(msg *wire.MsgMerkleBlock) error {
	p := c.p

	c.flagsMtx.Lock()
	expected := c.sentFilter || c.sentGetData
	c.flagsMtx.Unlock()
	if !expected {
		return peerError(ErrProtocolViolation,
			"got merkleblock message before loading a filter")
	}

	proof, err := bloom.ExtractMatches(msg)
	if err != nil {
		return wrapError(ErrMalformedMessage, "invalid merkleblock", err)
	}

	blk := &MerkleBlock{
		Header:            msg.Header,
		TotalTransactions: msg.Transactions,
		MatchedTxHashes:   proof.Matches,
	}

	var pending []chainhash.Hash
	for _, hash := range proof.Matches {
		if !c.knownTx.Exists(hash) {
			pending = append(pending, hash)
		}
	}

	if len(pending) == 0 {
		p.sink.RelayedBlock(p, blk)
		return nil
	}
	c.block.start(blk, pending)
	return nil
}

// handleRejectMsg is invoked when a peer receives a reject bitcoin message.
func (c *connection) handleRejectMsg(msg *wire.MsgReject) error {
	p := c.p

	log.Infof("%s rejected %s: code %v, reason %q, hash %s", p,
		sanitizeString(msg.Cmd, wire.CommandSize), msg.Code,
		sanitizeString(msg.Reason, maxRejectReasonLen), msg.Hash)

	if msg.Cmd == wire.CmdTx {
		p.sink.RejectedTx(p, msg.Hash, msg.Code)
	}
	return nil
}
