// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
)

// makeHeader is a convenience function to make a message header in the form of
// a byte slice.  It is used to force errors when reading messages.
func makeHeader(btcnet BitcoinNet, command string,
	payloadLen uint32, checksum uint32) []byte {

	// The length of a bitcoin message header is 24 bytes.
	// 4 byte magic number of the bitcoin network + 12 byte command + 4 byte
	// payload length + 4 byte checksum.
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf, uint32(btcnet))
	copy(buf[4:], []byte(command))
	binary.LittleEndian.PutUint32(buf[16:], payloadLen)
	binary.LittleEndian.PutUint32(buf[20:], checksum)
	return buf
}

// testHeader returns a block header with a fixed timestamp so it survives a
// trip over the wire unchanged.
func testHeader() *BlockHeader {
	bh := btcwire.NewBlockHeader(1, &chainhash.Hash{}, &chainhash.Hash{},
		0x1d00ffff, 0x9962e301)
	bh.Timestamp = time.Unix(0x4966bc61, 0)
	return bh
}

// TestMessage tests the EncodeMessage, FrameReader and DecodeMessage path for
// every supported message type.
func TestMessage(t *testing.T) {
	pver := ProtocolVersion

	// MsgVersion.
	addrYou := &net.TCPAddr{IP: net.ParseIP("192.168.0.1"), Port: 8333}
	you, err := NewNetAddress(addrYou, SFNodeNetwork)
	if err != nil {
		t.Errorf("NewNetAddress: %v", err)
	}
	you.Timestamp = time.Time{} // Version message has zero value timestamp.
	addrMe := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8333}
	me, err := NewNetAddress(addrMe, 0)
	if err != nil {
		t.Errorf("NewNetAddress: %v", err)
	}
	me.Timestamp = time.Time{} // Version message has zero value timestamp.
	msgVersion := NewMsgVersion(me, you, 123123, 0)

	msgAddr := NewMsgAddr()
	msgAddr.AddAddress(NewNetAddressTimestamp(time.Unix(0x495fab29, 0),
		SFNodeNetwork, net.ParseIP("10.0.0.1"), 8333))

	msgInv := NewMsgInv()
	msgInv.AddInvVect(NewInvVect(InvTypeTx, &chainhash.Hash{0x01}))

	msgGetData := NewMsgGetData()
	msgGetData.AddInvVect(NewInvVect(InvTypeFilteredBlock, &chainhash.Hash{0x02}))

	msgGetHeaders := NewMsgGetHeaders()
	msgGetHeaders.AddBlockLocatorHash(&chainhash.Hash{0x03})

	msgHeaders := NewMsgHeaders()
	msgHeaders.AddBlockHeader(testHeader())

	msgMerkleBlock := NewMsgMerkleBlock(testHeader())
	msgMerkleBlock.Transactions = 1
	msgMerkleBlock.AddTxHash(&chainhash.Hash{0x04})
	msgMerkleBlock.Flags = []byte{0x01}

	msgReject := NewMsgReject("block", RejectDuplicate, "duplicate block")
	msgRejectTx := NewMsgReject(CmdTx, RejectDust, "dust")
	msgRejectTx.Hash = chainhash.Hash{0x05}

	tests := []struct {
		in     Message    // Value to encode
		out    Message    // Expected decoded value
		pver   uint32     // Protocol version for wire encoding
		btcnet BitcoinNet // Network to use for wire encoding
		bytes  int        // Expected num bytes written
	}{
		{msgVersion, msgVersion, pver, MainNet, 125},                                                // [0]
		{NewMsgVerAck(), NewMsgVerAck(), pver, MainNet, 24},                                         // [1]
		{NewMsgGetAddr(), NewMsgGetAddr(), pver, MainNet, 24},                                       // [2]
		{NewMsgAddr(), NewMsgAddr(), pver, MainNet, 25},                                             // [3]
		{msgAddr, msgAddr, pver, MainNet, 55},                                                       // [4]
		{NewMsgGetBlocks(&chainhash.Hash{}), NewMsgGetBlocks(&chainhash.Hash{}), pver, MainNet, 61}, // [5]
		{msgInv, msgInv, pver, MainNet, 61},                                                         // [6]
		{msgGetData, msgGetData, pver, TestNet3, 61},                                                // [7]
		{NewMsgNotFound(), NewMsgNotFound(), pver, MainNet, 25},                                     // [8]
		{NewMsgPing(123123), NewMsgPing(123123), pver, MainNet, 32},                                 // [9]
		{NewMsgPong(123123), NewMsgPong(123123), pver, MainNet, 32},                                 // [10]
		{msgGetHeaders, msgGetHeaders, pver, MainNet, 93},                                           // [11]
		{msgHeaders, msgHeaders, pver, MainNet, 106},                                                // [12]
		{NewMsgMemPool(), NewMsgMemPool(), pver, RegTest, 24},                                       // [13]
		{NewMsgFilterLoad([]byte{0x01}, 10, 0, BloomUpdateNone), NewMsgFilterLoad([]byte{0x01}, 10, 0, BloomUpdateNone), pver, MainNet, 35}, // [14]
		{msgMerkleBlock, msgMerkleBlock, pver, MainNet, 143}, // [15]
		{msgReject, msgReject, pver, MainNet, 79},            // [16]
		{msgRejectTx, msgRejectTx, pver, MainNet, 65},        // [17]
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		// Encode to wire format.
		var buf bytes.Buffer
		nw, err := WriteMessageN(&buf, test.in, test.pver, test.btcnet)
		if err != nil {
			t.Errorf("WriteMessage #%d error %v", i, err)
			continue
		}

		// Ensure the number of bytes written match the expected value.
		if nw != test.bytes {
			t.Errorf("WriteMessage #%d unexpected num bytes "+
				"written - got %d, want %d", i, nw, test.bytes)
		}

		// Decode from wire format.
		fr := NewFrameReader(&buf, test.btcnet, 0)
		frame, err := fr.ReadFrame()
		if err != nil {
			t.Errorf("ReadFrame #%d error %v", i, err)
			continue
		}
		if frame.Command != test.in.Command() {
			t.Errorf("ReadFrame #%d wrong command - got %q, want %q",
				i, frame.Command, test.in.Command())
			continue
		}
		if len(frame.Payload)+MessageHeaderSize != test.bytes {
			t.Errorf("ReadFrame #%d unexpected payload length %d", i,
				len(frame.Payload))
		}
		msg, err := DecodeMessage(frame, test.pver)
		if err != nil {
			t.Errorf("DecodeMessage #%d error %v, msg %v", i, err,
				spew.Sdump(msg))
			continue
		}
		if !reflect.DeepEqual(msg, test.out) {
			t.Errorf("DecodeMessage #%d\n got: %v want: %v", i,
				spew.Sdump(msg), spew.Sdump(test.out))
			continue
		}
	}
}

// TestMsgTxRoundTrip ensures transactions are carried through the external
// codec unchanged.
func TestMsgTxRoundTrip(t *testing.T) {
	tx := btcwire.NewMsgTx(1)
	tx.AddTxIn(btcwire.NewTxIn(btcwire.NewOutPoint(&chainhash.Hash{},
		0xffffffff), []byte{0x04, 0x31, 0xdc, 0x00, 0x1b}, nil))
	tx.AddTxOut(btcwire.NewTxOut(5000000000, []byte{0x51}))

	frame, err := EncodeMessage(NewMsgTx(tx), ProtocolVersion, MainNet)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}

	hdr, err := DecodeHeader(frame)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if hdr.Command != CmdTx {
		t.Fatalf("DecodeHeader: wrong command %q", hdr.Command)
	}
	if int(hdr.Length) != tx.SerializeSize() {
		t.Fatalf("DecodeHeader: wrong length - got %d, want %d",
			hdr.Length, tx.SerializeSize())
	}

	msg, err := DecodeMessage(&Frame{Net: MainNet, Command: hdr.Command,
		Payload: frame[MessageHeaderSize:]}, ProtocolVersion)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	got, ok := msg.(*MsgTx)
	if !ok {
		t.Fatalf("DecodeMessage: wrong type %T", msg)
	}
	if got.TxHash() != tx.TxHash() {
		t.Fatalf("DecodeMessage: wrong hash - got %v, want %v",
			got.TxHash(), tx.TxHash())
	}
	if *got.BtcutilTx().Hash() != tx.TxHash() {
		t.Fatalf("BtcutilTx: wrong hash %v", got.BtcutilTx().Hash())
	}

	// A truncated transaction must be reported as a message error.
	_, err = DecodeMessage(&Frame{Net: MainNet, Command: CmdTx,
		Payload: frame[MessageHeaderSize : len(frame)-3]}, ProtocolVersion)
	var merr *MessageError
	if !errors.As(err, &merr) {
		t.Fatalf("DecodeMessage: expected MessageError, got %v", err)
	}
}

// TestEncodeFrame checks the exact header layout of an encoded frame.
func TestEncodeFrame(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	frame, err := EncodeFrame(MainNet, "ping", payload)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	sum := chainhash.DoubleHashB(payload)
	want := []byte{
		0xf9, 0xbe, 0xb4, 0xd9, // Magic
		'p', 'i', 'n', 'g', 0, 0, 0, 0, 0, 0, 0, 0, // Command
		0x03, 0x00, 0x00, 0x00, // Length
		sum[0], sum[1], sum[2], sum[3], // Checksum
		0x01, 0x02, 0x03, // Payload
	}
	if !bytes.Equal(frame, want) {
		t.Fatalf("EncodeFrame\n got: %s want: %s", spew.Sdump(frame),
			spew.Sdump(want))
	}

	hdr, err := DecodeHeader(frame)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if hdr.Magic != MainNet || hdr.Command != "ping" || hdr.Length != 3 ||
		hdr.Checksum != Checksum(payload) {

		t.Fatalf("DecodeHeader: unexpected header %v", spew.Sdump(hdr))
	}

	// Commands longer than the fixed field are rejected.
	_, err = EncodeFrame(MainNet, "averylongcommand", nil)
	var merr *MessageError
	if !errors.As(err, &merr) {
		t.Fatalf("EncodeFrame: expected MessageError, got %v", err)
	}

	// Headers shorter than 24 bytes are rejected.
	if _, err := DecodeHeader(frame[:10]); err == nil {
		t.Fatal("DecodeHeader: expected error for short header")
	}
}

// TestDecodeMessageErrors performs negative tests against payload decoding.
func TestDecodeMessageErrors(t *testing.T) {
	pver := ProtocolVersion

	tests := []struct {
		frame   *Frame
		wantErr error // Expected sentinel, nil when only a MessageError is expected
	}{
		// Valid, but unsupported command.
		{&Frame{Command: "bogus"}, ErrUnknownMessage},
		// Exceed max allowed payload for a message of a specific type.
		{&Frame{Command: CmdGetAddr, Payload: []byte{0x00}}, ErrPayloadTooLarge},
		{&Frame{Command: CmdPing, Payload: make([]byte, 9)}, ErrPayloadTooLarge},
		// Claims two addresses but carries none.
		{&Frame{Command: CmdAddr, Payload: []byte{0x02}}, nil},
		// Too many inventory vectors.
		{&Frame{Command: CmdInv, Payload: []byte{0xfd, 0x51, 0xc3}}, nil},
		// Headers with a non-zero transaction count.
		{&Frame{Command: CmdHeaders, Payload: append(append([]byte{0x01},
			make([]byte, MaxBlockHeaderPayload)...), 0x01)}, nil},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		_, err := DecodeMessage(test.frame, pver)
		if err == nil {
			t.Errorf("DecodeMessage #%d: expected error", i)
			continue
		}
		if test.wantErr != nil && !errors.Is(err, test.wantErr) {
			t.Errorf("DecodeMessage #%d wrong error got: %v, want: %v",
				i, err, test.wantErr)
		}
	}
}

// TestMessageError ensures message errors print as expected.
func TestMessageError(t *testing.T) {
	wantErr := "something bad happened"
	testErr := MessageError{Description: wantErr}
	if testErr.Error() != wantErr {
		t.Errorf("MessageError: wrong error - got %v, want %v",
			testErr.Error(), wantErr)
	}

	wantFunc := "foo"
	testErr = MessageError{Func: wantFunc, Description: wantErr}
	if testErr.Error() != wantFunc+": "+wantErr {
		t.Errorf("MessageError: wrong error - got %v, want %v",
			testErr.Error(), wantErr)
	}

	classified := classifiedError("foo", ErrChecksumMismatch, wantErr)
	if !errors.Is(classified, ErrChecksumMismatch) {
		t.Errorf("MessageError: %v does not unwrap to %v", classified,
			ErrChecksumMismatch)
	}
}
