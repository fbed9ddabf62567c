// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bloom"
	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/spvkit/spvpeer/wire"
)

// filterFalsePositiveRate is the false positive rate of the loaded filter.
// A higher rate hides the watched addresses among more unrelated matches.
const filterFalsePositiveRate = 0.0005

// buildFilter returns a filterload message for a bloom filter matching every
// output paying to one of addrs.  The filter is updated by the peer on every
// match so spends of matched outputs are relayed too.
func buildFilter(addrs []btcutil.Address, tweak uint32) *wire.MsgFilterLoad {
	elements := uint32(len(addrs))
	if elements == 0 {
		elements = 1
	}

	filter := bloom.NewFilter(elements, tweak, filterFalsePositiveRate,
		btcwire.BloomUpdateAll)
	for _, addr := range addrs {
		filter.Add(addr.ScriptAddress())
	}

	msg := filter.MsgFilterLoad()
	return wire.NewMsgFilterLoad(msg.Filter, msg.HashFuncs, msg.Tweak,
		wire.BloomUpdateType(msg.Flags))
}

// randomTweak returns a random filter tweak so filters of the same addresses
// differ between runs.
func randomTweak() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
