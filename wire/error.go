// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMessage is the error returned when decoding a frame whose
	// command is not one this package knows how to parse.  The frame has
	// been consumed in full, so the stream remains usable.
	ErrUnknownMessage = errors.New("received unknown message")

	// ErrChecksumMismatch is returned by FrameReader when a frame's payload
	// does not hash to the checksum in its header.  The payload has been
	// consumed, so the stream remains usable.
	ErrChecksumMismatch = errors.New("payload checksum mismatch")

	// ErrPayloadTooLarge is returned when a header declares a payload length
	// larger than the allowed maximum.  The payload is not consumed, so the
	// stream can not be resynchronised and the connection must be dropped.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum message length")
)

// MessageError describes an issue with a message.
// An example of some potential issues are messages from the wrong bitcoin
// network, invalid commands, mismatched checksums, and exceeding max payloads.
//
// This provides a mechanism for the caller to type assert the error to
// differentiate between general io errors such as io.EOF and issues that
// resulted from malformed messages.
type MessageError struct {
	Func        string // Function name
	Description string // Human readable description of the issue
	Err         error  // Optional sentinel the issue is classified as
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Description)
	}
	return e.Description
}

// Unwrap returns the sentinel error, if any, so callers can use errors.Is.
func (e *MessageError) Unwrap() error {
	return e.Err
}

// messageError creates an error for the given function and description.
func messageError(f string, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc}
}

// classifiedError creates an error for the given function and description
// that unwraps to err.
func classifiedError(f string, err error, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc, Err: err}
}
