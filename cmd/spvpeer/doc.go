// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
spvpeer connects to a single bitcoin full node as a light wallet would.  It
loads a bloom filter for the watched addresses, syncs headers up to the wallet
birthday and filtered blocks from there on, and logs every transaction and
block the node relays.  Addresses of other nodes learned along the way are
kept in an address book for the next run.

Usage:

	spvpeer [OPTIONS]

Application Options:

	-V, --version         Display version information and exit
	-C, --configfile=     Path to configuration file
	-b, --datadir=        Directory to store data
	    --logdir=         Directory to log output
	    --connect=        Connect only to the specified peer
	    --nodnsseed       Disable DNS seeding for peers
	    --proxy=          Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)
	    --proxyuser=      Username for proxy server
	    --proxypass=      Password for proxy server
	    --tor             Specifies the proxy server used is a Tor node
	    --torisolation    Enable Tor stream isolation by randomizing user
	                      credentials for each connection
	    --testnet         Use the test network
	    --regtest         Use the regression test network
	    --connecttimeout= Time allowed for the TCP connect to complete
	    --pinginterval=   Interval between keep-alive pings; an unanswered
	                      ping disconnects the peer
	    --watch=          Address to load into the bloom filter; may be
	                      repeated
	    --birthday=       Creation date of the oldest watched address as
	                      YYYY-MM-DD or unix seconds
	    --uacomment=      Comment to add to the user agent; may be repeated
	-d, --debuglevel=     Logging level for all subsystems {trace, debug, info,
	                      warn, error, critical} -- You may also specify
	                      <subsystem>=<level>,<subsystem2>=<level>,... to set
	                      the log level for individual subsystems -- Use show
	                      to list available subsystems

Help Options:

	-h, --help           Show this help message
*/
package main
