// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package bloom verifies the partial merkle trees (BIP0037) carried by merkleblock
messages.

A peer with a bloom filter loaded answers requests for filtered blocks with a
merkleblock message holding the block header, the total number of transactions
and a depth-first encoding of the smallest merkle tree that proves which of
them matched the filter.  ExtractMatches walks that tree, recomputes the merkle
root and returns the matched transaction hashes in block order.

Building filters is left to github.com/btcsuite/btcd/btcutil/bloom.
*/
package bloom
