// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/wire"
)

// MerkleBlock is a block header relayed by the peer together with the
// transactions of the block that matched the loaded filter.
//
// Blocks relayed from a headers message carry only the header.
type MerkleBlock struct {
	Header wire.BlockHeader

	// TotalTransactions is the number of transactions in the full block.
	TotalTransactions uint32

	// MatchedTxHashes lists every transaction the proof matched, in block
	// order.
	MatchedTxHashes []chainhash.Hash

	// Txs holds the matched transactions delivered after the merkleblock
	// message.  Matches that were already known on this connection are
	// not sent again by the peer and therefore only appear in
	// MatchedTxHashes.
	Txs []*btcutil.Tx
}

// BlockHash returns the hash of the block header.
func (b *MerkleBlock) BlockHash() chainhash.Hash {
	return b.Header.BlockHash()
}

// blockState tracks merkle block reassembly.  The zero value is idle.  While
// a block is set the connection is reassembling and only tx messages are
// expected.
type blockState struct {
	block   *MerkleBlock
	pending []chainhash.Hash
}

// reassembling reports whether a merkle block is waiting for transactions.
func (s *blockState) reassembling() bool {
	return s.block != nil
}

// start begins reassembling blk, waiting for the transactions in pending.
func (s *blockState) start(blk *MerkleBlock, pending []chainhash.Hash) {
	s.block = blk
	s.pending = pending
}

// reset returns the state to idle, returning the abandoned block and the
// number of transactions it was still waiting for.
func (s *blockState) reset() (*MerkleBlock, int) {
	blk, remaining := s.block, len(s.pending)
	s.block = nil
	s.pending = nil
	return blk, remaining
}

// addTx hands tx to the block being reassembled.  It reports whether tx was
// one of the expected transactions and returns the completed block once the
// last expected transaction arrived, leaving the state idle.
func (s *blockState) addTx(tx *btcutil.Tx) (bool, *MerkleBlock) {
	if s.block == nil {
		return false, nil
	}

	hash := tx.Hash()
	for i := range s.pending {
		if s.pending[i] != *hash {
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		s.block.Txs = append(s.block.Txs, tx)
		if len(s.pending) > 0 {
			return true, nil
		}
		blk, _ := s.reset()
		return true, blk
	}
	return false, nil
}
