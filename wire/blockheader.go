// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	btcwire "github.com/btcsuite/btcd/wire"
)

// MaxBlockHeaderPayload is the number of bytes a block header occupies.
// Version 4 bytes + PrevBlock 32 bytes + MerkleRoot 32 bytes + Timestamp 4
// bytes + Bits 4 bytes + Nonce 4 bytes.
const MaxBlockHeaderPayload = btcwire.MaxBlockHeaderPayload

// BlockHeader defines information about a block and is used in the headers
// and merkleblock messages.  Its serialization is provided by the btcd wire
// package.
type BlockHeader = btcwire.BlockHeader

// readBlockHeader reads a bitcoin block header from r.
func readBlockHeader(r io.Reader, pver uint32, bh *BlockHeader) error {
	return bh.Deserialize(r)
}

// writeBlockHeader writes a bitcoin block header to w.
func writeBlockHeader(w io.Writer, pver uint32, bh *BlockHeader) error {
	return bh.Serialize(w)
}
