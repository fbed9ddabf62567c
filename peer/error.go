// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
)

// ErrorCode identifies a kind of peer error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrNotConnected indicates a send was attempted without a live
	// connection.
	ErrNotConnected ErrorCode = iota

	// ErrHandshakeIncomplete indicates a send that requires a completed
	// version handshake was attempted before both veracks were seen.
	ErrHandshakeIncomplete

	// ErrUnsupportedVersion indicates the remote peer advertised a protocol
	// version below the configured minimum.
	ErrUnsupportedVersion

	// ErrSelfConnection indicates the remote peer echoed our own version
	// nonce.
	ErrSelfConnection

	// ErrConnectFailed indicates the connection could not be established.
	ErrConnectFailed

	// ErrConnectionLost indicates the remote end closed the connection or
	// a read or write on it failed.
	ErrConnectionLost

	// ErrOversizedMessage indicates a frame header declared a payload
	// longer than the configured maximum.
	ErrOversizedMessage

	// ErrMalformedMessage indicates a payload could not be decoded.
	ErrMalformedMessage

	// ErrProtocolViolation indicates the remote peer sent a message that is
	// not allowed in the current state.
	ErrProtocolViolation

	// ErrTooManyHashes indicates a getdata request exceeded the per call
	// hash limit.
	ErrTooManyHashes

	// ErrDuplicateRequest indicates a one-shot request was already sent on
	// this connection.
	ErrDuplicateRequest
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrNotConnected:        "ErrNotConnected",
	ErrHandshakeIncomplete: "ErrHandshakeIncomplete",
	ErrUnsupportedVersion:  "ErrUnsupportedVersion",
	ErrSelfConnection:      "ErrSelfConnection",
	ErrConnectFailed:       "ErrConnectFailed",
	ErrConnectionLost:      "ErrConnectionLost",
	ErrOversizedMessage:    "ErrOversizedMessage",
	ErrMalformedMessage:    "ErrMalformedMessage",
	ErrProtocolViolation:   "ErrProtocolViolation",
	ErrTooManyHashes:       "ErrTooManyHashes",
	ErrDuplicateRequest:    "ErrDuplicateRequest",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error identifies a peer error.  It is the cause handed to
// EventSink.Disconnected and the error returned by the Send methods.
type Error struct {
	Code        ErrorCode
	Description string
	Err         error
}

// Error satisfies the error interface and prints human-readable errors.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error carrying the same code.  This
// allows callers to test errors.Is(err, &peer.Error{Code: peer.ErrSelfConnection}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// peerError creates an Error given a set of arguments.
func peerError(c ErrorCode, desc string) *Error {
	return &Error{Code: c, Description: desc}
}

// wrapError creates an Error that wraps err.
func wrapError(c ErrorCode, desc string, err error) *Error {
	return &Error{Code: c, Description: desc, Err: err}
}

// IsErrorCode returns whether err is an Error with a matching code.
func IsErrorCode(err error, c ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == c
}
