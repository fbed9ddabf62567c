// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build unix

package peer

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// shutdownConn shuts down both directions of conn without releasing its
// descriptor.  A goroutine blocked reading conn wakes up with an error while
// the descriptor stays owned by the connection until it is closed, so the
// number can't be handed to an unrelated socket in between.
//
// Connections without a descriptor, such as proxied or in-memory ones, get
// expired deadlines instead, which wakes blocked readers and writers the same
// way.
func shutdownConn(conn net.Conn) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		conn.SetDeadline(time.Now())
		return
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		conn.SetDeadline(time.Now())
		return
	}

	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.Shutdown(int(fd), unix.SHUT_RDWR)
	})
	if err != nil || serr != nil {
		log.Tracef("Socket shutdown failed, expiring deadlines: %v %v",
			err, serr)
		conn.SetDeadline(time.Now())
	}
}
