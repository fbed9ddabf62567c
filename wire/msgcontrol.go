// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
)

// nonceSize is the payload length of ping and pong messages.
const nonceSize = 8

// emptyPayload provides the payload half of the Message interface for the
// messages that consist of their command alone.
type emptyPayload struct{}

func (emptyPayload) BtcDecode(io.Reader, uint32) error { return nil }
func (emptyPayload) BtcEncode(io.Writer, uint32) error { return nil }
func (emptyPayload) MaxPayloadLength(uint32) uint32    { return 0 }

// MsgVerAck acknowledges the version message of the remote peer and completes
// its half of the handshake.
type MsgVerAck struct{ emptyPayload }

// Command returns the protocol command string for the message.
func (*MsgVerAck) Command() string { return CmdVerAck }

// NewMsgVerAck returns a new verack message.
func NewMsgVerAck() *MsgVerAck { return &MsgVerAck{} }

// MsgGetAddr asks the remote peer for the addresses of the nodes it knows.
// The answer comes as one or more addr messages.
type MsgGetAddr struct{ emptyPayload }

// Command returns the protocol command string for the message.
func (*MsgGetAddr) Command() string { return CmdGetAddr }

// NewMsgGetAddr returns a new getaddr message.
func NewMsgGetAddr() *MsgGetAddr { return &MsgGetAddr{} }

// MsgMemPool asks the remote peer to announce the transactions in its memory
// pool that match the loaded filter.
//
// This message was not added until protocol version BIP0035Version.
type MsgMemPool struct{ emptyPayload }

// Command returns the protocol command string for the message.
func (*MsgMemPool) Command() string { return CmdMemPool }

// NewMsgMemPool returns a new mempool message.
func NewMsgMemPool() *MsgMemPool { return &MsgMemPool{} }

// MsgPing carries a nonce the remote peer echoes back in a pong.  Every peer
// spoken to is past BIP0031Version, so the nonce is always present.
type MsgPing struct {
	Nonce uint64
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.Nonce)
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.Nonce)
}

// Command returns the protocol command string for the message.
func (msg *MsgPing) Command() string { return CmdPing }

// MaxPayloadLength returns the maximum length the payload can be.
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 { return nonceSize }

// NewMsgPing returns a ping message carrying nonce.
func NewMsgPing(nonce uint64) *MsgPing { return &MsgPing{Nonce: nonce} }

// MsgPong answers a ping with the same nonce.
type MsgPong struct {
	Nonce uint64
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
func (msg *MsgPong) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.Nonce)
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
func (msg *MsgPong) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.Nonce)
}

// Command returns the protocol command string for the message.
func (msg *MsgPong) Command() string { return CmdPong }

// MaxPayloadLength returns the maximum length the payload can be.
func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32 { return nonceSize }

// NewMsgPong returns a pong message answering the ping with nonce.
func NewMsgPong(nonce uint64) *MsgPong { return &MsgPong{Nonce: nonce} }
