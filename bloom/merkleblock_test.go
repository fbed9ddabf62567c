// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom_test

import (
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	btcbloom "github.com/btcsuite/btcd/btcutil/bloom"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/spvkit/spvpeer/bloom"
	"github.com/spvkit/spvpeer/wire"
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

// merkleBlockFor builds the merkleblock message a peer would send for block
// with the transactions at the given indexes matched by its filter.
func merkleBlockFor(t *testing.T, block *btcutil.Block,
	match ...int) (*wire.MsgMerkleBlock, []*chainhash.Hash) {

	t.Helper()
	f := btcbloom.NewFilter(uint32(len(match)+1), 0, 0.000001,
		btcwire.BloomUpdateNone)
	for _, i := range match {
		f.AddHash(block.Transactions()[i].Hash())
	}
	upstream, indexes := btcbloom.NewMerkleBlock(block, f)
	matched := make([]*chainhash.Hash, 0, len(indexes))
	for _, i := range indexes {
		matched = append(matched, block.Transactions()[i].Hash())
	}

	msg := wire.NewMsgMerkleBlock(&upstream.Header)
	msg.Transactions = upstream.Transactions
	for _, hash := range upstream.Hashes {
		if err := msg.AddTxHash(hash); err != nil {
			t.Fatalf("AddTxHash: %v", err)
		}
	}
	msg.Flags = upstream.Flags
	return msg, matched
}

func TestExtractMatches(t *testing.T) {
	tests := []struct {
		name  string
		numTx int
		match []int
	}{
		{"single coinbase matched", 1, []int{0}},
		{"single coinbase unmatched", 1, nil},
		{"first of two", 2, []int{0}},
		{"odd count last", 7, []int{6}},
		{"odd count spread", 9, []int{1, 4, 8}},
		{"none of many", 16, nil},
		{"all of five", 5, []int{0, 1, 2, 3, 4}},
	}

	for _, test := range tests {
		block := makeBlock(test.numTx)
		msg, matched := merkleBlockFor(t, block, test.match...)

		proof, err := bloom.ExtractMatches(msg)
		if err != nil {
			t.Errorf("%s: ExtractMatches: %v", test.name, err)
			continue
		}
		if proof.Root != block.MsgBlock().Header.MerkleRoot {
			t.Errorf("%s: wrong root - got %v, want %v", test.name,
				proof.Root, block.MsgBlock().Header.MerkleRoot)
		}
		if len(proof.Matches) != len(matched) {
			t.Errorf("%s: wrong match count - got %d, want %d",
				test.name, len(proof.Matches), len(matched))
			continue
		}
		for i := range matched {
			if proof.Matches[i] != *matched[i] {
				t.Errorf("%s: match #%d - got %v, want %v",
					test.name, i, proof.Matches[i], matched[i])
			}
		}
	}
}

func TestExtractMatchesErrors(t *testing.T) {
	block := makeBlock(9)

	tests := []struct {
		name    string
		mutate  func(*wire.MsgMerkleBlock)
		wantErr error
	}{
		{
			name: "no transactions",
			mutate: func(m *wire.MsgMerkleBlock) {
				m.Transactions = 0
			},
			wantErr: bloom.ErrMalformedProof,
		},
		{
			name: "more hashes than transactions",
			mutate: func(m *wire.MsgMerkleBlock) {
				m.Transactions = uint32(len(m.Hashes) - 1)
			},
			wantErr: bloom.ErrMalformedProof,
		},
		{
			name: "unused hash",
			mutate: func(m *wire.MsgMerkleBlock) {
				m.Hashes = append(m.Hashes, &chainhash.Hash{0x01})
			},
			wantErr: bloom.ErrMalformedProof,
		},
		{
			name: "missing hash",
			mutate: func(m *wire.MsgMerkleBlock) {
				m.Hashes = m.Hashes[:len(m.Hashes)-1]
			},
			wantErr: bloom.ErrMalformedProof,
		},
		{
			name: "unused flag byte",
			mutate: func(m *wire.MsgMerkleBlock) {
				m.Flags = append(m.Flags, 0x00)
			},
			wantErr: bloom.ErrMalformedProof,
		},
		{
			name: "no flags",
			mutate: func(m *wire.MsgMerkleBlock) {
				m.Flags = nil
			},
			wantErr: bloom.ErrMalformedProof,
		},
		{
			name: "tampered hash",
			mutate: func(m *wire.MsgMerkleBlock) {
				h := *m.Hashes[0]
				h[0] ^= 0xff
				m.Hashes[0] = &h
			},
			wantErr: bloom.ErrMerkleRootMismatch,
		},
		{
			name: "wrong header root",
			mutate: func(m *wire.MsgMerkleBlock) {
				m.Header.MerkleRoot = chainhash.Hash{0x02}
			},
			wantErr: bloom.ErrMerkleRootMismatch,
		},
	}

	for _, test := range tests {
		msg, _ := merkleBlockFor(t, block, 1, 4)
		test.mutate(msg)

		_, err := bloom.ExtractMatches(msg)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%s: wrong error - got %v, want %v", test.name,
				err, test.wantErr)
		}
	}
}

// TestExtractMatchesDuplicateBranch ensures a proof that duplicates the last
// transaction to forge an alternative list with the same root is refused.
func TestExtractMatchesDuplicateBranch(t *testing.T) {
	block := makeBlock(2)
	txs := block.Transactions()

	// Claiming four leaves that repeat the real pair yields two identical
	// subtrees whose parent hashes to the same root as the padded two leaf
	// tree.
	msg := wire.NewMsgMerkleBlock(&block.MsgBlock().Header)
	msg.Transactions = 4
	msg.AddTxHash(txs[0].Hash())
	msg.AddTxHash(txs[1].Hash())
	msg.AddTxHash(txs[0].Hash())
	msg.AddTxHash(txs[1].Hash())
	msg.Flags = []byte{0x7f}

	_, err := bloom.ExtractMatches(msg)
	if !errors.Is(err, bloom.ErrMalformedProof) {
		t.Fatalf("ExtractMatches: expected malformed proof, got %v", err)
	}
}
