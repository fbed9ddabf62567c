// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spvkit/spvpeer/wire"
)

// dispatch decodes frame and routes it to its handler.  A non-nil error ends
// the connection with that error as the cause.
func (c *connection) dispatch(frame *wire.Frame) error {
	p := c.p

	// The transactions of a merkle block follow it back to back.  Anything
	// else means the peer will not send the rest, so the block is dropped
	// and the message handled normally.
	if c.block.reassembling() && frame.Command != wire.CmdTx {
		blk, remaining := c.block.reset()
		log.Warnf("Incomplete merkleblock %s from %s, expected %d more "+
			"tx, got %s", blk.BlockHash(), p, remaining, frame.Command)
	}

	msg, err := wire.DecodeMessage(frame, p.ProtocolVersion())
	if errors.Is(err, wire.ErrUnknownMessage) {
		log.Debugf("Dropping %s from %s, length %d, not implemented",
			frame.Command, p, len(frame.Payload))
		return nil
	}
	if err != nil {
		// Tell the peer what was wrong before hanging up.
		if frame.Command != wire.CmdReject {
			reject := wire.NewMsgReject(frame.Command,
				wire.RejectMalformed, err.Error())
			c.send(reject)
		}
		return wrapError(ErrMalformedMessage,
			fmt.Sprintf("malformed %s message", frame.Command), err)
	}

	log.Debugf("%v", newLogClosure(func() string {
		// Debug summary of message.
		summary := messageSummary(msg)
		if len(summary) > 0 {
			summary = " (" + summary + ")"
		}
		return fmt.Sprintf("Received %v%s from %s", msg.Command(),
			summary, p)
	}))
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(msg)
	}))

	// Nothing but the version (and a reject of ours) may arrive before
	// the remote version.
	if !c.versionReceived() {
		switch msg.(type) {
		case *wire.MsgVersion, *wire.MsgReject:
		default:
			return peerError(ErrProtocolViolation, fmt.Sprintf(
				"got %s before version", msg.Command()))
		}
	}

	switch msg := msg.(type) {
	case *wire.MsgVersion:
		return c.handleVersionMsg(msg)

	case *wire.MsgVerAck:
		return c.handleVerAckMsg()

	case *wire.MsgAddr:
		return c.handleAddrMsg(msg)

	case *wire.MsgInv:
		return c.handleInvMsg(msg)

	case *wire.MsgTx:
		return c.handleTxMsg(msg)

	case *wire.MsgHeaders:
		return c.handleHeadersMsg(msg)

	case *wire.MsgGetAddr:
		return c.handleGetAddrMsg()

	case *wire.MsgGetData:
		return c.handleGetDataMsg(msg)

	case *wire.MsgNotFound:
		return c.handleNotFoundMsg(msg)

	case *wire.MsgPing:
		return c.handlePingMsg(msg)

	case *wire.MsgPong:
		return c.handlePongMsg(msg)

	case *wire.MsgMerkleBlock:
		return c.handleMerkleBlockMsg(msg)

	case *wire.MsgReject:
		return c.handleRejectMsg(msg)

	default:
		log.Debugf("Ignoring %s from %s, not used by light clients",
			msg.Command(), p)
	}
	return nil
}
