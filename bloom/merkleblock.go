// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/wire"
)

// maxTxPerBlock is the largest transaction count a merkle block may claim.
// It mirrors the smallest possible transaction in the largest possible block.
const maxTxPerBlock = 4000000 / 60

var (
	// ErrMerkleRootMismatch is returned when a partial merkle tree is well
	// formed but does not hash to the merkle root of its block header.
	ErrMerkleRootMismatch = errors.New("merkle root mismatch")

	// ErrMalformedProof is returned when a partial merkle tree can not be
	// walked: it claims too many transactions, runs out of hashes or flag
	// bits, leaves some of them unused or duplicates a right branch.
	ErrMalformedProof = errors.New("malformed partial merkle tree")
)

// MerkleProof is the result of walking the partial merkle tree of a merkle
// block.
type MerkleProof struct {
	// Root is the merkle root computed from the proof.  It equals the
	// header's merkle root whenever ExtractMatches succeeds.
	Root chainhash.Hash

	// Matches holds the hashes of the transactions the proof marks as
	// matched, in block order.
	Matches []chainhash.Hash
}

// partialTree is used to house the state needed to walk the depth-first
// partial merkle tree carried by a merkleblock message.
type partialTree struct {
	numTx     uint32
	hashes    []*chainhash.Hash
	flags     []byte
	bitsUsed  uint32
	hashUsed  uint32
	matches   []chainhash.Hash
	malformed string
}

// calcTreeWidth calculates and returns the number of nodes (width) of a
// merkle tree at the given depth-first height.
func (t *partialTree) calcTreeWidth(height uint32) uint32 {
	return (t.numTx + (1 << height) - 1) >> height
}

// hashMerkleBranches returns the double sha256 of the concatenation of the two
// child hashes.
func hashMerkleBranches(left, right *chainhash.Hash) chainhash.Hash {
	var h [chainhash.HashSize * 2]byte
	copy(h[:chainhash.HashSize], left[:])
	copy(h[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(h[:])
}

// traverseAndExtract consumes the flag bits and hashes of the sub-tree rooted
// at the given depth-first height and position and returns its hash.  Leaves
// flagged as matched are appended to the match list.  On failure the
// malformed field is set and the returned hash is meaningless.
func (t *partialTree) traverseAndExtract(height, pos uint32) chainhash.Hash {
	if t.malformed != "" {
		return chainhash.Hash{}
	}
	if t.bitsUsed >= uint32(len(t.flags))*8 {
		t.malformed = "overflowed the flag bits"
		return chainhash.Hash{}
	}
	isParent := t.flags[t.bitsUsed/8]&(1<<(t.bitsUsed%8)) != 0
	t.bitsUsed++

	// A leaf, or an inner node none of whose descendants matched, is
	// represented by its hash alone.
	if height == 0 || !isParent {
		if t.hashUsed >= uint32(len(t.hashes)) {
			t.malformed = "overflowed the hash list"
			return chainhash.Hash{}
		}
		hash := *t.hashes[t.hashUsed]
		t.hashUsed++
		if height == 0 && isParent {
			t.matches = append(t.matches, hash)
		}
		return hash
	}

	// Descend into the left child and then the right child if there is
	// one.  A node without a right child is hashed with itself.
	left := t.traverseAndExtract(height-1, pos*2)
	right := left
	if pos*2+1 < t.calcTreeWidth(height-1) {
		right = t.traverseAndExtract(height-1, pos*2+1)

		// Identical children allow two different transaction lists to
		// share a root, so they are refused.
		if t.malformed == "" && right == left {
			t.malformed = "duplicate right branch"
			return chainhash.Hash{}
		}
	}
	return hashMerkleBranches(&left, &right)
}

// ExtractMatches walks the partial merkle tree of msg and returns the matched
// transaction hashes in block order.  It fails with ErrMalformedProof when the
// tree is inconsistent and with ErrMerkleRootMismatch when the computed root
// differs from the root in the block header.
func ExtractMatches(msg *wire.MsgMerkleBlock) (*MerkleProof, error) {
	// An empty block can not exist since every block has a coinbase.
	if msg.Transactions == 0 {
		return nil, fmt.Errorf("%w: no transactions", ErrMalformedProof)
	}
	if msg.Transactions > maxTxPerBlock {
		return nil, fmt.Errorf("%w: %d transactions exceeds the maximum "+
			"of %d", ErrMalformedProof, msg.Transactions, maxTxPerBlock)
	}

	// There can never be more hashes than transactions, and every hash
	// consumes at least one flag bit.
	if uint32(len(msg.Hashes)) > msg.Transactions {
		return nil, fmt.Errorf("%w: %d hashes for %d transactions",
			ErrMalformedProof, len(msg.Hashes), msg.Transactions)
	}
	if len(msg.Flags)*8 < len(msg.Hashes) {
		return nil, fmt.Errorf("%w: %d flag bytes for %d hashes",
			ErrMalformedProof, len(msg.Flags), len(msg.Hashes))
	}

	t := partialTree{
		numTx:  msg.Transactions,
		hashes: msg.Hashes,
		flags:  msg.Flags,
	}

	// Calculate the number of merkle branches (height) in the tree.
	height := uint32(0)
	for t.calcTreeWidth(height) > 1 {
		height++
	}

	root := t.traverseAndExtract(height, 0)
	if t.malformed != "" {
		return nil, fmt.Errorf("%w: %s", ErrMalformedProof, t.malformed)
	}

	// Every hash must have been consumed, and all flag bits except the
	// padding of the final byte.
	if (t.bitsUsed+7)/8 != uint32(len(t.flags)) {
		return nil, fmt.Errorf("%w: used %d of %d flag bits",
			ErrMalformedProof, t.bitsUsed, len(t.flags)*8)
	}
	if t.hashUsed != uint32(len(t.hashes)) {
		return nil, fmt.Errorf("%w: used %d of %d hashes",
			ErrMalformedProof, t.hashUsed, len(t.hashes))
	}

	if root != msg.Header.MerkleRoot {
		return nil, fmt.Errorf("%w: computed %v, header has %v",
			ErrMerkleRootMismatch, root, msg.Header.MerkleRoot)
	}

	return &MerkleProof{Root: root, Matches: t.matches}, nil
}
