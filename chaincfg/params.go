// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"

	btcchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/wire"
)

var (
	// ErrDuplicateNet describes an error where the parameters for a bitcoin
	// network could not be set due to the network already being a standard
	// network or previously-registered into this package.
	ErrDuplicateNet = errors.New("duplicate bitcoin network")

	// ErrUnknownNet describes an error where no parameters are registered
	// for the requested network.
	ErrUnknownNet = errors.New("unknown bitcoin network")
)

// DNSSeed identifies a DNS seed.  HasFiltering reports whether the seed
// answers queries prefixed with the required service bits.
type DNSSeed = btcchaincfg.DNSSeed

// Checkpoint identifies a known good point in the block chain.  A wallet
// starting from scratch uses them as block locators so the peer does not send
// headers from the genesis block onwards.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// Params defines a bitcoin network by its parameters.  These parameters may be
// used by applications to differentiate networks as well as addresses and keys
// for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// DNSSeeds defines a list of DNS seeds for the network that are used
	// as one method to discover peers.
	DNSSeeds []DNSSeed

	// GenesisHash is the starting block hash.
	GenesisHash *chainhash.Hash

	// Checkpoints ordered from oldest to newest.
	Checkpoints []Checkpoint

	// Upstream holds the full btcd parameters of the same network.  They
	// are used for address encoding.
	Upstream *btcchaincfg.Params
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash.  It only differs from the one available in chainhash in that
// it panics on an error since it will only (and must only) be called with
// hard-coded, and therefore known good, hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		// Only reachable through a typo in a hard-coded hash.
		panic(err)
	}
	return hash
}

// MainNetParams defines the network parameters for the main bitcoin network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	DNSSeeds:    btcchaincfg.MainNetParams.DNSSeeds,
	GenesisHash: btcchaincfg.MainNetParams.GenesisHash,
	Checkpoints: []Checkpoint{
		{11111, newHashFromStr("0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d")},
		{33333, newHashFromStr("000000002dd5588a74784eaa7ab0507a18ad16a236e7b1ce69f00d7ddfb5d0a6")},
		{74000, newHashFromStr("0000000000573993a3c9e41ce34471c079dcf5f52a0e824a81e7f953b8661a20")},
		{105000, newHashFromStr("00000000000291ce28027faea320c8d2b054b2e0fe44a773f3eefb151d6bdc97")},
	},
	Upstream: &btcchaincfg.MainNetParams,
}

// TestNet3Params defines the network parameters for the test bitcoin network
// (version 3).
var TestNet3Params = Params{
	Name:        "testnet3",
	Net:         wire.TestNet3,
	DefaultPort: "18333",
	DNSSeeds:    btcchaincfg.TestNet3Params.DNSSeeds,
	GenesisHash: btcchaincfg.TestNet3Params.GenesisHash,
	Checkpoints: []Checkpoint{
		{546, newHashFromStr("000000002a936ca763904c3c35fce2f3556c559c0214345d31b1bcebf76acb70")},
	},
	Upstream: &btcchaincfg.TestNet3Params,
}

// RegressionNetParams defines the network parameters for the regression test
// bitcoin network.  Not to be confused with the test bitcoin network (version
// 3), this network is sometimes simply called "testnet".
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.RegTest,
	DefaultPort: "18444",
	DNSSeeds:    []DNSSeed{},
	GenesisHash: btcchaincfg.RegressionNetParams.GenesisHash,
	Upstream:    &btcchaincfg.RegressionNetParams,
}

// BlockLocator returns the checkpoint hashes newest first followed by the
// genesis hash, suitable for a getheaders request from a wallet that has no
// headers yet.
func (p *Params) BlockLocator() []*chainhash.Hash {
	locator := make([]*chainhash.Hash, 0, len(p.Checkpoints)+1)
	for i := len(p.Checkpoints) - 1; i >= 0; i-- {
		locator = append(locator, p.Checkpoints[i].Hash)
	}
	return append(locator, p.GenesisHash)
}

var registeredNets = make(map[wire.BitcoinNet]*Params)

// Register registers the network parameters for a bitcoin network.  This may
// error with ErrDuplicateNet if the network is already registered (either
// due to a previous Register call, or the network being one of the default
// networks).
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = params
	return nil
}

// mustRegister performs the same function as Register except it panics if
// there is an error.  This should only be called from package init
// functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// ParamsForNet returns the registered parameters for the given network magic.
func ParamsForNet(net wire.BitcoinNet) (*Params, error) {
	params, ok := registeredNets[net]
	if !ok {
		return nil, ErrUnknownNet
	}
	return params, nil
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainNetParams)
	mustRegister(&TestNet3Params)
	mustRegister(&RegressionNetParams)
}
