// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !unix

package peer

import (
	"net"
	"time"
)

// shutdownConn wakes any goroutine blocked on conn without closing it.  TCP
// connections are half closed in both directions; everything else gets
// expired deadlines.
func shutdownConn(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseRead()
		tc.CloseWrite()
		return
	}
	conn.SetDeadline(time.Now())
}
