// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"fmt"
	mrand "math/rand"
	"net"
	"strconv"
	"time"

	"github.com/spvkit/spvpeer/chaincfg"
	"github.com/spvkit/spvpeer/wire"
)

const (
	// These constants are used by the DNS seed code to pick a random last
	// seen time.
	secondsIn3Days int32 = 24 * 60 * 60 * 3
	secondsIn4Days int32 = 24 * 60 * 60 * 4
)

// OnSeed is the signature of the callback function which is invoked when DNS
// seeding is successful.
type OnSeed func(addrs []*wire.NetAddress)

// LookupFunc is the signature of the DNS lookup function.
type LookupFunc func(string) ([]net.IP, error)

// seedHost returns the name to query on seeder.  Seeds that support
// filtering are asked for nodes with reqServices only.
func seedHost(seeder chaincfg.DNSSeed, reqServices wire.ServiceFlag) string {
	if reqServices != wire.SFNodeNetwork && seeder.HasFiltering {
		return fmt.Sprintf("x%x.%s", uint64(reqServices), seeder.Host)
	}
	return seeder.Host
}

// SeedFromDNS uses DNS seeding to find nodes offering reqServices.  Every
// seed is queried on its own goroutine and seedFn is invoked once per seed
// that returned addresses, possibly concurrently.
func SeedFromDNS(chainParams *chaincfg.Params, reqServices wire.ServiceFlag,
	lookupFn LookupFunc, seedFn OnSeed) {

	// if this errors then we have *real* problems
	intPort, _ := strconv.Atoi(chainParams.DefaultPort)

	for _, dnsseed := range chainParams.DNSSeeds {
		host := seedHost(dnsseed, reqServices)

		go func(host string) {
			randSource := mrand.New(mrand.NewSource(time.Now().UnixNano()))

			seedpeers, err := lookupFn(host)
			if err != nil {
				log.Infof("DNS discovery failed on seed %s: %v", host, err)
				return
			}
			numPeers := len(seedpeers)

			log.Infof("%d addresses found from DNS seed %s", numPeers, host)

			if numPeers == 0 {
				return
			}
			addresses := make([]*wire.NetAddress, len(seedpeers))
			for i, peer := range seedpeers {
				// bitcoind seeds with addresses from a time
				// randomly selected between 3 and 7 days ago.
				ts := time.Now().Add(-1 * time.Second *
					time.Duration(secondsIn3Days+
						randSource.Int31n(secondsIn4Days)))
				addresses[i] = wire.NewNetAddressTimestamp(ts,
					reqServices, peer, uint16(intPort))
			}

			seedFn(addresses)
		}(host)
	}
}
