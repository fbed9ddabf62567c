// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package peer implements the connection to a single bitcoin node for
Simplified Payment Verification (SPV) wallets.  It performs the version
handshake, answers pings and getdata requests, and reassembles filtered blocks
from merkleblock messages and the transactions that follow them.

# Peer Lifecycle

A Peer is created with New from the node's network address, a Config and an
EventSink.  Connect returns immediately; a goroutine dials the node, sends the
version message and then reads messages until the connection is lost or
Disconnect is called.  That goroutine owns the socket and is the only one that
closes it.  Disconnect shuts the socket down, which wakes the reader, and
teardown runs on the reader once it returned.  Every connection that got as
far as dialing ends with exactly one EventSink.Disconnected call.

When EventSink.NetworkIsReachable reports false, Connect leaves the peer in
the connecting state without dialing.  The caller invokes Connect again once
the network is back.

# Events

Everything the peer learns is reported through the EventSink interface.  The
methods are called from the connection goroutine in the order the messages
arrived, and may call back into the Peer.  NoopSink can be embedded to
implement only some of the events.

# Sending

The Send methods write directly to the socket from the calling goroutine.
Nothing is queued: a peer that doesn't read holds up the sender until the
connection is closed.  Post-handshake requests fail with
ErrHandshakeIncomplete until EventSink.HandshakeComplete was called.

# Filtered Blocks

A merkleblock message is followed by the matched transactions the node has not
sent on this connection before.  The block is held back until they all arrived
and is then relayed with them.  Any message other than a transaction in
between means the node won't send the rest; the incomplete block is dropped
with a warning and the message is handled normally.

# Errors

Failures end the connection and are reported as the cause passed to
EventSink.Disconnected.  The cause is a *Error whose Code tells what went
wrong, or nil when Disconnect was called locally.  The engine never times out
a stalled handshake or block on its own; callers watch PingTime or use
SendPing from a watchdog.
*/
package peer
