// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"sync"
	"testing"
	"time"

	"github.com/spvkit/spvpeer/peer"
	"github.com/stretchr/testify/require"
)

// fakePinger answers pings according to its settings.
type fakePinger struct {
	mtx          sync.Mutex
	answer       bool
	handshake    bool
	pings        int
	disconnected chan struct{}
}

func newFakePinger(answer, handshake bool) *fakePinger {
	return &fakePinger{
		answer:       answer,
		handshake:    handshake,
		disconnected: make(chan struct{}),
	}
}

func (f *fakePinger) String() string { return "fake" }

func (f *fakePinger) Status() peer.Status { return peer.StatusConnected }

func (f *fakePinger) SendPing(done func(bool)) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if !f.handshake {
		return &peer.Error{Code: peer.ErrHandshakeIncomplete}
	}
	f.pings++
	if f.answer {
		done(true)
	}
	return nil
}

func (f *fakePinger) Disconnect() { close(f.disconnected) }

func (f *fakePinger) pingCount() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.pings
}

func TestPingWatchdog(t *testing.T) {
	const interval = 10 * time.Millisecond

	t.Run("answered", func(t *testing.T) {
		p := newFakePinger(true, true)
		quit := make(chan struct{})
		done := make(chan struct{})
		go func() {
			pingWatchdog(p, interval, quit)
			close(done)
		}()

		require.Eventually(t, func() bool { return p.pingCount() >= 3 },
			time.Second, interval)
		close(quit)
		<-done

		select {
		case <-p.disconnected:
			t.Fatal("answering peer was disconnected")
		default:
		}
	})

	t.Run("unanswered", func(t *testing.T) {
		p := newFakePinger(false, true)
		go pingWatchdog(p, interval, make(chan struct{}))

		select {
		case <-p.disconnected:
		case <-time.After(time.Second):
			t.Fatal("silent peer was not disconnected")
		}
		require.Equal(t, 1, p.pingCount())
	})

	t.Run("stalled handshake", func(t *testing.T) {
		p := newFakePinger(true, false)
		go pingWatchdog(p, interval, make(chan struct{}))

		select {
		case <-p.disconnected:
		case <-time.After(time.Second):
			t.Fatal("stalled peer was not disconnected")
		}
		require.Zero(t, p.pingCount())
	})
}
