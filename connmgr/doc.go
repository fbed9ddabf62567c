// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package connmgr finds bitcoin nodes to connect to.

# DNS Seeding

SeedFromDNS queries the DNS seeds of a network and hands the resolved
addresses to a callback.  Seeds that support service filtering are asked for
nodes offering the requested services only.  The timestamps of seeded
addresses are set to a random time between three and seven days ago so they
rank below addresses learned from peers.

Lookups go through the local resolver unless a Tor proxy is configured, in
which case TorLookupIP resolves the names through the proxy so no DNS traffic
leaves the host.
*/
package connmgr
