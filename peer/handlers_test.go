// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer_test

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	btcbloom "github.com/btcsuite/btcd/btcutil/bloom"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	"github.com/spvkit/spvpeer/peer"
	"github.com/spvkit/spvpeer/wire"
	"github.com/stretchr/testify/require"
)

// makeBlock returns a block with numTx distinct transactions and a correct
// merkle root.
func makeBlock(numTx int) *btcutil.Block {
	msgBlock := btcwire.MsgBlock{
		Header: btcwire.BlockHeader{
			Version:   1,
			Timestamp: time.Unix(1231006505, 0),
			Bits:      0x1d00ffff,
		},
	}
	for i := 0; i < numTx; i++ {
		tx := btcwire.NewMsgTx(1)
		tx.AddTxIn(btcwire.NewTxIn(btcwire.NewOutPoint(&chainhash.Hash{},
			uint32(i)), []byte{0x51}, nil))
		tx.AddTxOut(btcwire.NewTxOut(int64(i+1)*1000, []byte{0x51}))
		msgBlock.AddTransaction(tx)
	}

	block := btcutil.NewBlock(&msgBlock)
	msgBlock.Header.MerkleRoot = blockchain.CalcMerkleRoot(
		block.Transactions(), false)
	return btcutil.NewBlock(&msgBlock)
}

// merkleBlockFor builds the merkleblock message a node would send for block
// with the transactions at the given indexes matched by its filter.
func merkleBlockFor(t *testing.T, block *btcutil.Block, match ...int) *wire.MsgMerkleBlock {
	t.Helper()

	f := btcbloom.NewFilter(uint32(len(match)+1), 0, 0.000001,
		btcwire.BloomUpdateNone)
	for _, i := range match {
		f.AddHash(block.Transactions()[i].Hash())
	}
	upstream, _ := btcbloom.NewMerkleBlock(block, f)

	msg := wire.NewMsgMerkleBlock(&upstream.Header)
	msg.Transactions = upstream.Transactions
	for _, hash := range upstream.Hashes {
		require.NoError(t, msg.AddTxHash(hash))
	}
	msg.Flags = upstream.Flags
	return msg
}

// makeHeaders returns a chain of n headers with the timestamps chosen by ts.
func makeHeaders(n int, ts func(i int) time.Time) *wire.MsgHeaders {
	msg := wire.NewMsgHeaders()
	var prev chainhash.Hash
	for i := 0; i < n; i++ {
		h := &wire.BlockHeader{
			Version:   1,
			PrevBlock: prev,
			Timestamp: ts(i),
			Bits:      0x207fffff,
			Nonce:     uint32(i),
		}
		msg.AddBlockHeader(h)
		prev = h.BlockHash()
	}
	return msg
}

// testHash returns a distinct hash for i.
func testHash(i int) chainhash.Hash {
	return chainhash.DoubleHashH([]byte(fmt.Sprintf("hash %d", i)))
}

// loadFilter sends a filter to the remote node, which allows it to relay
// transactions and merkle blocks.
func loadFilter(t *testing.T, p *peer.Peer, node *remoteNode) {
	t.Helper()
	filter := wire.NewMsgFilterLoad([]byte{0xff}, 1, 0, wire.BloomUpdateNone)
	require.NoError(t, p.SendFilterLoad(filter))
	node.expect(wire.CmdFilterLoad)
}

// requireViolation waits for the peer to disconnect with a protocol
// violation.
func requireViolation(t *testing.T, sink *testSink) {
	t.Helper()
	cause := waitFor(t, sink.disconnected, "disconnected event")
	require.True(t, peer.IsErrorCode(cause, peer.ErrProtocolViolation),
		"wrong cause: %v", cause)
}

// TestMerkleBlockReassembly ensures a merkle block is relayed exactly once,
// after its matched transactions arrived in any order.
func TestMerkleBlockReassembly(t *testing.T) {
	tests := []struct {
		name  string
		known []int // matched transactions announced beforehand
		order []int // transactions sent after the merkleblock
	}{
		{"in block order", nil, []int{1, 3, 5}},
		{"out of order", nil, []int{3, 1, 5}},
		{"known match not resent", []int{3}, []int{5, 1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sink := newTestSink()
			p, node := connectPeer(t, nil, sink)
			loadFilter(t, p, node)

			block := makeBlock(6)
			txs := block.Transactions()
			for _, i := range test.known {
				require.NoError(t, p.SendInv([]chainhash.Hash{*txs[i].Hash()}))
				node.expect(wire.CmdInv)
			}

			node.send(merkleBlockFor(t, block, 1, 3, 5))
			for _, i := range test.order {
				node.send(wire.NewMsgTx(txs[i].MsgTx()))
			}

			blk := waitFor(t, sink.blocks, "merkle block")
			require.Equal(t, *block.Hash(), blk.BlockHash())
			require.Equal(t, uint32(6), blk.TotalTransactions)
			require.Equal(t, []chainhash.Hash{
				*txs[1].Hash(), *txs[3].Hash(), *txs[5].Hash(),
			}, blk.MatchedTxHashes)
			require.Len(t, blk.Txs, len(test.order))
			for i, idx := range test.order {
				require.Equal(t, txs[idx].Hash(), blk.Txs[i].Hash())
				relayed := waitFor(t, sink.txs, "relayed tx")
				require.Equal(t, txs[idx].Hash(), relayed.Hash())
			}

			node.roundTrip()
			require.Empty(t, sink.blocks, "block relayed twice")
		})
	}
}

// TestMerkleBlockWithoutPending ensures a merkle block with no matches is
// relayed right away.
func TestMerkleBlockWithoutPending(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)
	loadFilter(t, p, node)

	block := makeBlock(4)
	node.send(merkleBlockFor(t, block))

	blk := waitFor(t, sink.blocks, "merkle block")
	require.Equal(t, *block.Hash(), blk.BlockHash())
	require.Empty(t, blk.MatchedTxHashes)
	require.Empty(t, blk.Txs)
}

// TestMerkleBlockAbort ensures a merkle block interrupted by another message
// is dropped with a warning while the message itself is still handled.
func TestMerkleBlockAbort(t *testing.T) {
	buf := captureLog(t, btclog.LevelWarn)
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)
	loadFilter(t, p, node)

	block := makeBlock(6)
	txs := block.Transactions()
	node.send(merkleBlockFor(t, block, 1, 3, 5))
	node.send(wire.NewMsgTx(txs[1].MsgTx()))

	headers := makeHeaders(1, func(int) time.Time { return time.Now() })
	node.send(headers)
	node.expect(wire.CmdGetBlocks)

	relayed := waitFor(t, sink.blocks, "header")
	require.Equal(t, headers.Headers[0].BlockHash(), relayed.BlockHash())
	require.Nil(t, relayed.MatchedTxHashes)

	want := fmt.Sprintf("Incomplete merkleblock %s", block.Hash())
	require.Contains(t, buf.String(), want)
	require.Contains(t, buf.String(), "expected 2 more tx, got headers")

	// The missing transaction arriving late no longer completes the block.
	node.send(wire.NewMsgTx(txs[3].MsgTx()))
	node.roundTrip()
	require.Empty(t, sink.blocks)
	require.Len(t, sink.txs, 2)
}

// TestDuplicateTx ensures a transaction is relayed once no matter how often
// the remote node sends it, and a transaction served to the remote node is not
// relayed back when it returns.
func TestDuplicateTx(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)
	loadFilter(t, p, node)

	txs := makeBlock(2).Transactions()
	for i := 0; i < 3; i++ {
		node.send(wire.NewMsgTx(txs[0].MsgTx()))
	}
	node.roundTrip()
	require.Len(t, sink.txs, 1)
	relayed := waitFor(t, sink.txs, "relayed tx")
	require.Equal(t, txs[0].Hash(), relayed.Hash())

	sink.mtx.Lock()
	sink.txPool[*txs[1].Hash()] = txs[1]
	sink.mtx.Unlock()
	getData := wire.NewMsgGetData()
	getData.AddInvVect(wire.NewInvVect(wire.InvTypeTx, txs[1].Hash()))
	node.send(getData)
	node.expect(wire.CmdTx)

	node.send(wire.NewMsgTx(txs[1].MsgTx()))
	node.roundTrip()
	require.Empty(t, sink.txs)
}

// TestUnexpectedData ensures data the wallet never asked for ends the
// connection.
func TestUnexpectedData(t *testing.T) {
	block := makeBlock(2)
	tests := []struct {
		name string
		msg  wire.Message
	}{
		{"merkleblock", merkleBlockFor(t, block, 0)},
		{"tx", wire.NewMsgTx(block.Transactions()[0].MsgTx())},
		{"tx inv", func() wire.Message {
			msg := wire.NewMsgInv()
			hash := testHash(0)
			msg.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &hash))
			return msg
		}()},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sink := newTestSink()
			_, node := connectPeer(t, nil, sink)
			node.send(test.msg)
			requireViolation(t, sink)
		})
	}
}

// TestInvHandling ensures announced inventory is requested or reported as
// known.
func TestInvHandling(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)
	loadFilter(t, p, node)

	known, unknown, block := testHash(1), testHash(2), testHash(3)
	require.NoError(t, p.SendInv([]chainhash.Hash{known}))
	node.expect(wire.CmdInv)

	inv := wire.NewMsgInv()
	inv.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &known))
	inv.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &unknown))
	inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &block))
	node.send(inv)

	getData := node.expect(wire.CmdGetData).(*wire.MsgGetData)
	require.Len(t, getData.InvList, 2)
	require.Equal(t, wire.InvTypeTx, getData.InvList[0].Type)
	require.Equal(t, unknown, getData.InvList[0].Hash)
	require.Equal(t, wire.InvTypeFilteredBlock, getData.InvList[1].Type)
	require.Equal(t, block, getData.InvList[1].Hash)
	require.Equal(t, known, waitFor(t, sink.hasTx, "known tx"))

	// The same single block announced again is ignored, and requested
	// transactions are known from now on.
	inv = wire.NewMsgInv()
	inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &block))
	node.send(inv)
	require.Empty(t, node.roundTrip())

	require.NoError(t, p.SendInv([]chainhash.Hash{unknown}))
	require.Empty(t, node.roundTrip(), "requested tx announced back")
}

// TestInvStaleFilter ensures blocks aren't requested while the filter is out
// of date.
func TestInvStaleFilter(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)
	loadFilter(t, p, node)

	p.SetNeedsFilterUpdate()
	require.True(t, p.NeedsFilterUpdate())

	first := testHash(1)
	inv := wire.NewMsgInv()
	inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &first))
	node.send(inv)
	require.Empty(t, node.roundTrip())

	loadFilter(t, p, node)
	require.False(t, p.NeedsFilterUpdate())

	second := testHash(2)
	inv = wire.NewMsgInv()
	inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &second))
	node.send(inv)
	getData := node.expect(wire.CmdGetData).(*wire.MsgGetData)
	require.Len(t, getData.InvList, 1)
	require.Equal(t, second, getData.InvList[0].Hash)
}

// TestInvLimits covers the inventory announcements that end the connection.
func TestInvLimits(t *testing.T) {
	t.Run("too many transactions", func(t *testing.T) {
		sink := newTestSink()
		p, node := connectPeer(t, nil, sink)
		loadFilter(t, p, node)

		inv := wire.NewMsgInv()
		for i := 0; i < 10001; i++ {
			hash := testHash(i)
			inv.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &hash))
		}
		node.send(inv)
		requireViolation(t, sink)
	})

	t.Run("short block batch", func(t *testing.T) {
		sink := newTestSink()
		p, node := connectPeer(t, nil, sink)
		p.SetCurrentBlockHeight(10)
		loadFilter(t, p, node)

		// The node claims height 500 but only announces 3 blocks.
		inv := wire.NewMsgInv()
		for i := 0; i < 3; i++ {
			hash := testHash(i)
			inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &hash))
		}
		node.send(inv)
		requireViolation(t, sink)
	})
}

// TestBlockInvContinuation ensures a full batch of block hashes requests the
// next batch.
func TestBlockInvContinuation(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)
	loadFilter(t, p, node)

	inv := wire.NewMsgInv()
	for i := 0; i < 500; i++ {
		hash := testHash(i)
		inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &hash))
	}
	node.send(inv)

	getData := node.expect(wire.CmdGetData).(*wire.MsgGetData)
	require.Len(t, getData.InvList, 500)
	getBlocks := node.expect(wire.CmdGetBlocks).(*wire.MsgGetBlocks)
	require.Equal(t, []*chainhash.Hash{&inv.InvList[499].Hash,
		&inv.InvList[0].Hash}, getBlocks.BlockLocatorHashes)
	require.Equal(t, chainhash.Hash{}, getBlocks.HashStop)

	// Blocks announced on the connection can be requested again.
	from := inv.InvList[498].Hash
	require.NoError(t, p.RerequestBlocks(from))
	getData = node.expect(wire.CmdGetData).(*wire.MsgGetData)
	require.Len(t, getData.InvList, 2)
	require.Equal(t, from, getData.InvList[0].Hash)

	// Blocks before from were forgotten.
	require.NoError(t, p.RerequestBlocks(inv.InvList[0].Hash))
	require.Empty(t, node.roundTrip())
}

// TestMempool exercises the mempool request and its completion ping.
func TestMempool(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)
	loadFilter(t, p, node)

	done := make(chan bool, 1)
	require.NoError(t, p.SendMempool(nil, func(ok bool) { done <- ok }))
	node.expect(wire.CmdMemPool)

	err := p.SendMempool(nil, nil)
	require.True(t, peer.IsErrorCode(err, peer.ErrDuplicateRequest),
		"second mempool: %v", err)

	hash := testHash(1)
	inv := wire.NewMsgInv()
	inv.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &hash))
	node.send(inv)
	node.expect(wire.CmdGetData)
	ping := node.expect(wire.CmdPing).(*wire.MsgPing)
	require.Empty(t, done)

	node.send(wire.NewMsgPong(ping.Nonce))
	require.True(t, waitFor(t, done, "mempool completion"))

	// A new filter allows another request.
	loadFilter(t, p, node)
	require.NoError(t, p.SendMempool(nil, nil))
	node.expect(wire.CmdMemPool)
}

// TestHeadersSync covers the decisions taken on a headers message.
func TestHeadersSync(t *testing.T) {
	old := func(i int) time.Time {
		return time.Unix(1300000000+int64(i)*600, 0)
	}

	t.Run("full batch before key time", func(t *testing.T) {
		sink := newTestSink()
		p, node := connectPeer(t, nil, sink)
		p.SetEarliestKeyTime(time.Now())

		headers := makeHeaders(wire.MaxBlockHeadersPerMsg, old)
		node.send(headers)

		getHeaders := node.expect(wire.CmdGetHeaders).(*wire.MsgGetHeaders)
		last := headers.Headers[len(headers.Headers)-1].BlockHash()
		first := headers.Headers[0].BlockHash()
		require.Equal(t, []*chainhash.Hash{&last, &first},
			getHeaders.BlockLocatorHashes)
		for i := 0; i < wire.MaxBlockHeadersPerMsg; i++ {
			blk := waitFor(t, sink.blocks, "header")
			require.Equal(t, headers.Headers[i].BlockHash(), blk.BlockHash())
		}
	})

	t.Run("reaches key time", func(t *testing.T) {
		sink := newTestSink()
		p, node := connectPeer(t, nil, sink)

		keyTime := old(10).Add(7*24*time.Hour + 2*time.Hour)
		p.SetEarliestKeyTime(keyTime)

		headers := makeHeaders(20, func(i int) time.Time {
			if i < 5 {
				return old(i)
			}
			return keyTime
		})
		node.send(headers)

		getBlocks := node.expect(wire.CmdGetBlocks).(*wire.MsgGetBlocks)
		from := headers.Headers[4].BlockHash()
		require.Equal(t, []*chainhash.Hash{&from},
			getBlocks.BlockLocatorHashes)
		node.roundTrip()
		require.Len(t, sink.blocks, 20)
	})

	t.Run("short batch before key time", func(t *testing.T) {
		sink := newTestSink()
		p, node := connectPeer(t, nil, sink)
		p.SetEarliestKeyTime(time.Now())

		node.send(makeHeaders(10, old))
		requireViolation(t, sink)
	})

	t.Run("empty", func(t *testing.T) {
		sink := newTestSink()
		_, node := connectPeer(t, nil, sink)
		node.send(wire.NewMsgHeaders())
		require.Empty(t, node.roundTrip())
		require.Empty(t, sink.blocks)
	})
}

// TestAddrHandling ensures only solicited full node addresses are relayed,
// with adjusted timestamps.
func TestAddrHandling(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)

	now := time.Now()
	addr := wire.NewMsgAddr()
	addr.AddAddress(wire.NewNetAddressTimestamp(now.Add(-time.Hour),
		wire.SFNodeNetwork, net.ParseIP("10.0.0.2"), 18444))
	addr.AddAddress(wire.NewNetAddressTimestamp(now,
		wire.SFNodeBloom, net.ParseIP("10.0.0.3"), 18444))
	addr.AddAddress(wire.NewNetAddressTimestamp(now.Add(time.Hour),
		wire.SFNodeNetwork|wire.SFNodeBloom, net.ParseIP("10.0.0.4"), 18444))

	// Unsolicited addresses are ignored.
	node.send(addr)
	node.roundTrip()
	require.Empty(t, sink.peers)

	require.NoError(t, p.SendGetAddr())
	node.expect(wire.CmdGetAddr)
	err := p.SendGetAddr()
	require.True(t, peer.IsErrorCode(err, peer.ErrDuplicateRequest),
		"second getaddr: %v", err)

	node.send(addr)
	addrs := waitFor(t, sink.peers, "relayed peers")
	require.Len(t, addrs, 2)
	require.Equal(t, "10.0.0.2", addrs[0].IP.String())
	require.InDelta(t, now.Add(-3*time.Hour).Unix(),
		addrs[0].Timestamp.Unix(), 60)
	require.Equal(t, "10.0.0.4", addrs[1].IP.String())
	require.InDelta(t, now.Add(-5*24*time.Hour-2*time.Hour).Unix(),
		addrs[1].Timestamp.Unix(), 60)

	// A getaddr from the node is answered with an empty list.
	node.send(wire.NewMsgGetAddr())
	reply := node.expect(wire.CmdAddr).(*wire.MsgAddr)
	require.Empty(t, reply.AddrList)
}

// TestGetDataServing ensures requested transactions are served from the sink
// and the rest reported as not found.
func TestGetDataServing(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, nil, sink)

	tx := makeBlock(1).Transactions()[0]
	sink.mtx.Lock()
	sink.txPool[*tx.Hash()] = tx
	sink.mtx.Unlock()

	missing, block := testHash(1), testHash(2)
	getData := wire.NewMsgGetData()
	getData.AddInvVect(wire.NewInvVect(wire.InvTypeTx, tx.Hash()))
	getData.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &missing))
	getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &block))
	node.send(getData)

	served := node.expect(wire.CmdTx).(*wire.MsgTx)
	require.Equal(t, *tx.Hash(), served.TxHash())
	notFound := node.expect(wire.CmdNotFound).(*wire.MsgNotFound)
	require.Len(t, notFound.InvList, 2)
	require.Equal(t, missing, notFound.InvList[0].Hash)
	require.Equal(t, block, notFound.InvList[1].Hash)

	// The served transaction is known and isn't announced again.
	require.NoError(t, p.SendInv([]chainhash.Hash{*tx.Hash()}))
	require.Empty(t, node.roundTrip())
}

// TestNotFoundAndReject ensures notfound and reject messages reach the sink.
func TestNotFoundAndReject(t *testing.T) {
	sink := newTestSink()
	_, node := connectPeer(t, nil, sink)

	txHash, blockHash := testHash(1), testHash(2)
	notFound := wire.NewMsgNotFound()
	notFound.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &txHash))
	notFound.AddInvVect(wire.NewInvVect(wire.InvTypeFilteredBlock, &blockHash))
	node.send(notFound)

	ev := waitFor(t, sink.notFound, "notfound event")
	require.Equal(t, []chainhash.Hash{txHash}, ev.txHashes)
	require.Equal(t, []chainhash.Hash{blockHash}, ev.blockHashes)

	reject := wire.NewMsgReject(wire.CmdTx, wire.RejectInsufficientFee,
		"min relay fee not met")
	reject.Hash = txHash
	node.send(reject)
	rej := waitFor(t, sink.rejected, "reject event")
	require.Equal(t, txHash, rej.hash)
	require.Equal(t, wire.RejectInsufficientFee, rej.code)

	// Rejects of anything but transactions are only logged.
	node.send(wire.NewMsgReject(wire.CmdFilterLoad, wire.RejectInvalid, ""))
	node.roundTrip()
	require.Empty(t, sink.rejected)
}

// TestSendRequests covers the outgoing requests and their limits.
func TestSendRequests(t *testing.T) {
	sink := newTestSink()
	p, node := connectPeer(t, &peer.Config{MaxGetDataHashes: 2}, sink)

	tx, blk := testHash(1), testHash(2)
	err := p.SendGetData([]chainhash.Hash{tx, testHash(3)}, []chainhash.Hash{blk})
	require.True(t, peer.IsErrorCode(err, peer.ErrTooManyHashes),
		"oversized getdata: %v", err)
	require.Empty(t, node.roundTrip())

	require.NoError(t, p.SendGetData([]chainhash.Hash{tx}, []chainhash.Hash{blk}))
	getData := node.expect(wire.CmdGetData).(*wire.MsgGetData)
	require.Equal(t, wire.InvTypeTx, getData.InvList[0].Type)
	require.Equal(t, wire.InvTypeFilteredBlock, getData.InvList[1].Type)

	// Back to back duplicate getblocks are filtered.
	locator := []*chainhash.Hash{&blk}
	require.NoError(t, p.SendGetBlocks(locator, &chainhash.Hash{}))
	node.expect(wire.CmdGetBlocks)
	require.NoError(t, p.SendGetBlocks(locator, &chainhash.Hash{}))
	require.Empty(t, node.roundTrip())
	require.NoError(t, p.SendGetBlocks([]*chainhash.Hash{&tx}, &chainhash.Hash{}))
	node.expect(wire.CmdGetBlocks)

	require.NoError(t, p.SendGetHeaders(locator, &chainhash.Hash{}))
	getHeaders := node.expect(wire.CmdGetHeaders).(*wire.MsgGetHeaders)
	require.Equal(t, locator, getHeaders.BlockLocatorHashes)

	// Announcing the same transaction twice sends it once.
	require.NoError(t, p.SendInv([]chainhash.Hash{testHash(4)}))
	require.NoError(t, p.SendInv([]chainhash.Hash{testHash(4)}))
	node.expect(wire.CmdInv)
	require.Empty(t, node.roundTrip())

	// A tx reject always carries a hash.
	require.NoError(t, p.SendReject(wire.CmdTx, wire.RejectDust, "dust", nil))
	reject := node.expect(wire.CmdReject).(*wire.MsgReject)
	require.Equal(t, chainhash.Hash{}, reject.Hash)
}
