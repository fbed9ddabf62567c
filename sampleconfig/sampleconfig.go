// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

// FileContents is a string containing the commented example config for
// spvpeer.
const FileContents = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store data such as known peer addresses.  The default is
; ~/.spvpeer/data on POSIX OSes, $LOCALAPPDATA/Spvpeer/data on Windows and
; ~/Library/Application Support/Spvpeer/data on macOS.  Environment variables
; are expanded so they may be used.
; datadir=~/.spvpeer/data

; The directory to write the rotated log files to.
; logdir=~/.spvpeer/logs


; ------------------------------------------------------------------------------
; Network settings
; ------------------------------------------------------------------------------

; Use testnet.
; testnet=1

; Use the regression test network.
; regtest=1

; Connect via a SOCKS5 proxy.
; proxy=127.0.0.1:9050
; proxyuser=
; proxypass=

; The SOCKS5 proxy above is a Tor node.  DNS seeds are then resolved through
; the proxy so the local resolver never sees them.
; tor=1

; Enable Tor stream isolation by randomizing proxy user credentials resulting in
; Tor creating a new circuit for each connection.
; torisolation=1

; Only connect to the given peer.  DNS seeding and the address book are not
; used when this is set.
; connect=127.0.0.1:18444

; Disable DNS seeding for peers.  An empty address book then leaves nothing to
; connect to.
; nodnsseed=1

; Time allowed for the TCP connect to complete.
; connecttimeout=3s

; Interval between keep-alive pings.  A ping that was not answered by the next
; tick disconnects the peer.
; pinginterval=2m


; ------------------------------------------------------------------------------
; Wallet settings
; ------------------------------------------------------------------------------

; Addresses to load into the bloom filter.  May be repeated.
; watch=mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn

; Creation date of the oldest watched address, as YYYY-MM-DD or unix seconds.
; Header sync switches to filtered blocks once it reaches this date.
; birthday=2024-01-01

; Comments appended to the advertised user agent.  May be repeated.
; uacomment=


; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems.  Use spvpeer --debuglevel=show to list
; available subsystems.
; debuglevel=info
`
