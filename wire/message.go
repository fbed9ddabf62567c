// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MessageHeaderSize is the number of bytes in a bitcoin message header.
// Bitcoin network (magic) 4 bytes + command 12 bytes + payload length 4 bytes +
// checksum 4 bytes.
const MessageHeaderSize = 24

// CommandSize is the fixed size of all commands in the common bitcoin message
// header.  Shorter commands must be zero padded.
const CommandSize = 12

// MaxMessagePayload is the maximum bytes a message can be regardless of other
// individual limits imposed by messages themselves.
const MaxMessagePayload = (1024 * 1024 * 32) // 32MB

// Commands used in bitcoin message headers which describe the type of message.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdGetAddr     = "getaddr"
	CmdAddr        = "addr"
	CmdGetBlocks   = "getblocks"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdTx          = "tx"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdMemPool     = "mempool"
	CmdFilterLoad  = "filterload"
	CmdMerkleBlock = "merkleblock"
	CmdReject      = "reject"

	// CmdBlock is only referenced by reject messages.  Full blocks are
	// never requested so the payload has no decoder.
	CmdBlock = "block"
)

// Message is an interface that describes a bitcoin message.  A type that
// implements Message has complete control over the representation of its data
// and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	BtcDecode(io.Reader, uint32) error
	BtcEncode(io.Writer, uint32) error
	Command() string
	MaxPayloadLength(uint32) uint32
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, error) {
	var msg Message
	switch command {
	case CmdVersion:
		msg = &MsgVersion{}

	case CmdVerAck:
		msg = &MsgVerAck{}

	case CmdGetAddr:
		msg = &MsgGetAddr{}

	case CmdAddr:
		msg = &MsgAddr{}

	case CmdGetBlocks:
		msg = &MsgGetBlocks{}

	case CmdInv:
		msg = &MsgInv{}

	case CmdGetData:
		msg = &MsgGetData{}

	case CmdNotFound:
		msg = &MsgNotFound{}

	case CmdTx:
		msg = &MsgTx{}

	case CmdPing:
		msg = &MsgPing{}

	case CmdPong:
		msg = &MsgPong{}

	case CmdGetHeaders:
		msg = &MsgGetHeaders{}

	case CmdHeaders:
		msg = &MsgHeaders{}

	case CmdMemPool:
		msg = &MsgMemPool{}

	case CmdFilterLoad:
		msg = &MsgFilterLoad{}

	case CmdMerkleBlock:
		msg = &MsgMerkleBlock{}

	case CmdReject:
		msg = &MsgReject{}

	default:
		return nil, ErrUnknownMessage
	}
	return msg, nil
}

// MessageHeader defines the header structure for all bitcoin protocol
// messages.
type MessageHeader struct {
	Magic    BitcoinNet // 4 bytes
	Command  string     // 12 bytes
	Length   uint32     // 4 bytes
	Checksum [4]byte    // 4 bytes
}

// DecodeHeader parses the fixed size header at the start of b.  The command
// is returned with its trailing zero padding stripped.
func DecodeHeader(b []byte) (*MessageHeader, error) {
	if len(b) < MessageHeaderSize {
		str := fmt.Sprintf("header is %d bytes, need %d", len(b),
			MessageHeaderSize)
		return nil, messageError("DecodeHeader", str)
	}

	hr := bytes.NewReader(b[:MessageHeaderSize])
	hdr := MessageHeader{}
	var command [CommandSize]byte
	err := readElements(hr, &hdr.Magic, &command, &hdr.Length, &hdr.Checksum)
	if err != nil {
		return nil, err
	}

	// Strip trailing zeros from command string.
	hdr.Command = string(bytes.TrimRight(command[:], "\x00"))

	return &hdr, nil
}

// Checksum returns the first four bytes of the double sha256 of payload.
func Checksum(payload []byte) [4]byte {
	var sum [4]byte
	copy(sum[:], chainhash.DoubleHashB(payload)[:4])
	return sum
}

// Frame is a single framed message read from or destined for the wire.  The
// payload has not been parsed.
type Frame struct {
	Net     BitcoinNet
	Command string
	Payload []byte
}

// EncodeFrame returns the complete wire encoding of a message with the given
// command and raw payload: the 24 byte header followed by the payload.
func EncodeFrame(btcnet BitcoinNet, cmd string, payload []byte) ([]byte, error) {
	// Enforce max command size.
	var command [CommandSize]byte
	if len(cmd) > CommandSize {
		str := fmt.Sprintf("command [%s] is too long [max %v]",
			cmd, CommandSize)
		return nil, messageError("EncodeFrame", str)
	}
	copy(command[:], []byte(cmd))

	// Enforce maximum overall message payload.
	lenp := len(payload)
	if lenp > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload is %d bytes",
			lenp, MaxMessagePayload)
		return nil, classifiedError("EncodeFrame", ErrPayloadTooLarge, str)
	}

	buf := bytes.NewBuffer(make([]byte, 0, MessageHeaderSize+lenp))
	err := writeElements(buf, btcnet, command, uint32(lenp), Checksum(payload))
	if err != nil {
		return nil, err
	}
	buf.Write(payload)

	return buf.Bytes(), nil
}

// EncodeMessage serializes msg and frames it for the given network.
func EncodeMessage(msg Message, pver uint32, btcnet BitcoinNet) ([]byte, error) {
	cmd := msg.Command()

	// Encode the message payload.
	var bw bytes.Buffer
	if err := msg.BtcEncode(&bw, pver); err != nil {
		return nil, err
	}
	payload := bw.Bytes()

	// Enforce maximum message payload based on the message type.
	mpl := msg.MaxPayloadLength(pver)
	if uint32(len(payload)) > mpl {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload size for "+
			"messages of type [%s] is %d.", len(payload), cmd, mpl)
		return nil, classifiedError("EncodeMessage", ErrPayloadTooLarge, str)
	}

	return EncodeFrame(btcnet, cmd, payload)
}

// WriteMessageN writes a bitcoin Message to w including the necessary header
// information and returns the number of bytes written.  The header and payload
// are handed to w in a single Write call so concurrent writers on a net.Conn
// never interleave partial frames.
func WriteMessageN(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) (int, error) {
	frame, err := EncodeMessage(msg, pver, btcnet)
	if err != nil {
		return 0, err
	}
	return w.Write(frame)
}

// WriteMessage writes a bitcoin Message to w including the necessary header
// information.  This function is the same as WriteMessageN except it doesn't
// return the number of bytes written.
func WriteMessage(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) error {
	_, err := WriteMessageN(w, msg, pver, btcnet)
	return err
}

// DecodeMessage parses the payload of frame into the concrete Message type
// named by its command.  ErrUnknownMessage is returned for commands this
// package does not implement.
func DecodeMessage(frame *Frame, pver uint32) (Message, error) {
	msg, err := makeEmptyMessage(frame.Command)
	if err != nil {
		return nil, err
	}

	// Check for maximum length based on the message type as a malicious
	// client could otherwise create a well-formed header and set the length
	// to max numbers in order to exhaust the machine's memory.
	mpl := msg.MaxPayloadLength(pver)
	if uint32(len(frame.Payload)) > mpl {
		str := fmt.Sprintf("payload exceeds max length - header "+
			"indicates %v bytes, but max payload size for "+
			"messages of type [%v] is %v.", len(frame.Payload),
			frame.Command, mpl)
		return nil, classifiedError("DecodeMessage", ErrPayloadTooLarge, str)
	}

	pr := bytes.NewBuffer(frame.Payload)
	if err := msg.BtcDecode(pr, pver); err != nil {
		return nil, err
	}

	return msg, nil
}
