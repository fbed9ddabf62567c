// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the bitcoin wire protocol subset spoken by a
lightweight wallet peer.

# Message Overview

Every message on the wire is a frame made of a 24 byte header followed by an
opaque payload.  The header carries the network magic, a twelve byte zero
padded ASCII command, the payload length and the first four bytes of the
double sha256 of the payload.  EncodeFrame and DecodeHeader handle the header
alone, while EncodeMessage and WriteMessageN serialize a Message and frame it
in one step.

# Reading Messages

A FrameReader splits a byte stream into frames.  It skips bytes until it finds
the magic of its network, rejects frames longer than its configured maximum
with ErrPayloadTooLarge and reports corrupted payloads with
ErrChecksumMismatch.  The latter leaves the stream aligned on the next frame,
so callers may log it and keep reading.  DecodeMessage then parses a frame into
one of the concrete message types:

	frame, err := fr.ReadFrame()
	if err != nil {
		// Log and decide whether the stream is still usable.
	}
	msg, err := wire.DecodeMessage(frame, pver)
	if errors.Is(err, wire.ErrUnknownMessage) {
		// Unknown command, the frame was consumed already.
	}
	switch msg := msg.(type) {
	case *wire.MsgVersion:
		// Handle the version message.
	}

# Transactions And Block Headers

Transactions and block headers are serialized by the btcd wire package.  MsgTx
wraps a *btcwire.MsgTx and BlockHeader is an alias for btcwire.BlockHeader, so
the rest of this package never inspects their contents.

# Errors

Errors returned by this package are either the raw errors provided by the
underlying io.Reader or io.Writer, or of type *MessageError.  A MessageError
may unwrap to one of the sentinel errors ErrUnknownMessage,
ErrChecksumMismatch or ErrPayloadTooLarge so callers can classify framing
failures with errors.Is.
*/
package wire
