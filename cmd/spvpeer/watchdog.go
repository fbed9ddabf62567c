// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spvkit/spvpeer/peer"
)

// pinger is the part of a peer the watchdog drives.
type pinger interface {
	fmt.Stringer
	Status() peer.Status
	SendPing(done func(success bool)) error
	Disconnect()
}

// pingWatchdog pings p every interval and disconnects it when the previous
// ping was not answered by the next tick, or when the handshake did not
// complete within one interval.  The peer itself never times out a
// connection.  It returns when quit is closed or after disconnecting.
func pingWatchdog(p pinger, interval time.Duration, quit <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		sent            uint64
		answered        atomic.Uint64
		handshakeStalls int
	)
	for {
		select {
		case <-ticker.C:
			if p.Status() != peer.StatusConnected {
				continue
			}

			if sent > answered.Load() {
				spvcLog.Warnf("Peer %s did not answer a ping within "+
					"%v -- disconnecting", p, interval)
				p.Disconnect()
				return
			}

			err := p.SendPing(func(success bool) {
				if success {
					answered.Add(1)
				}
			})
			switch {
			case err == nil:
				sent++
				handshakeStalls = 0

			case peer.IsErrorCode(err, peer.ErrHandshakeIncomplete):
				handshakeStalls++
				if handshakeStalls > 1 {
					spvcLog.Warnf("Peer %s did not complete the "+
						"handshake within %v -- disconnecting",
						p, interval)
					p.Disconnect()
					return
				}

			default:
				spvcLog.Debugf("Unable to ping %s: %v", p, err)
			}

		case <-quit:
			return
		}
	}
}
