// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// FrameReader splits a byte stream into frames for a single network.
//
// Bytes preceding a valid magic are skipped one at a time, so a stream that
// lost alignment resynchronises on the next frame header.  A header that
// declares a payload longer than the configured maximum yields
// ErrPayloadTooLarge and leaves the stream unusable.  A payload whose checksum
// does not match yields ErrChecksumMismatch after the payload was consumed, so
// reading may continue.
type FrameReader struct {
	r       *bufio.Reader
	net     BitcoinNet
	maxLen  uint32
	header  [MessageHeaderSize]byte
	skipped int
}

// NewFrameReader returns a FrameReader reading frames for btcnet from r.  A
// maxLen of zero selects MaxMessagePayload.
func NewFrameReader(r io.Reader, btcnet BitcoinNet, maxLen uint32) *FrameReader {
	if maxLen == 0 || maxLen > MaxMessagePayload {
		maxLen = MaxMessagePayload
	}
	return &FrameReader{
		r:      bufio.NewReader(r),
		net:    btcnet,
		maxLen: maxLen,
	}
}

// Skipped returns the number of bytes discarded while searching for a frame
// header during the most recent ReadFrame call.
func (fr *FrameReader) Skipped() int {
	return fr.skipped
}

// ReadFrame blocks until the next complete frame is available.
func (fr *FrameReader) ReadFrame() (*Frame, error) {
	fr.skipped = 0
	if _, err := io.ReadFull(fr.r, fr.header[:]); err != nil {
		return nil, err
	}

	var magic [4]byte
	littleEndian.PutUint32(magic[:], uint32(fr.net))
	for !bytes.Equal(fr.header[:4], magic[:]) {
		copy(fr.header[:], fr.header[1:])
		b, err := fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		fr.header[MessageHeaderSize-1] = b
		fr.skipped++
	}

	hdr, err := DecodeHeader(fr.header[:])
	if err != nil {
		return nil, err
	}

	if hdr.Length > fr.maxLen {
		str := fmt.Sprintf("message payload is too large - header "+
			"indicates %d bytes for [%s], but max message payload "+
			"is %d bytes", hdr.Length, hdr.Command, fr.maxLen)
		return nil, classifiedError("ReadFrame", ErrPayloadTooLarge, str)
	}

	payload := make([]byte, hdr.Length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return nil, err
	}

	if sum := Checksum(payload); sum != hdr.Checksum {
		str := fmt.Sprintf("payload checksum failed for [%s] - header "+
			"indicates %x, but actual checksum is %x", hdr.Command,
			hdr.Checksum, sum)
		return nil, classifiedError("ReadFrame", ErrChecksumMismatch, str)
	}

	return &Frame{Net: hdr.Magic, Command: hdr.Command, Payload: payload}, nil
}
