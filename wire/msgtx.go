// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
)

// MsgTx implements the Message interface and represents a bitcoin tx message.
// The transaction itself is opaque to this package: encoding and decoding are
// delegated to the btcd wire codec, which understands both the legacy and the
// segregated witness serializations.
type MsgTx struct {
	Tx *btcwire.MsgTx
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	var tx btcwire.MsgTx
	if err := tx.Deserialize(r); err != nil {
		return messageError("MsgTx.BtcDecode", err.Error())
	}
	msg.Tx = &tx
	return nil
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	if msg.Tx == nil {
		return messageError("MsgTx.BtcEncode", "no transaction to encode")
	}
	return msg.Tx.Serialize(w)
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgTx) Command() string {
	return CmdTx
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 {
	return btcwire.MaxBlockPayload
}

// TxHash returns the hash of the wrapped transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	return msg.Tx.TxHash()
}

// BtcutilTx wraps the transaction for consumers that want the cached hash.
func (msg *MsgTx) BtcutilTx() *btcutil.Tx {
	return btcutil.NewTx(msg.Tx)
}

// NewMsgTx returns a new bitcoin tx message that conforms to the Message
// interface.  See MsgTx for details.
func NewMsgTx(tx *btcwire.MsgTx) *MsgTx {
	return &MsgTx{Tx: tx}
}
