// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"testing"

	"github.com/spvkit/spvpeer/wire"
)

// TestMustRegisterPanic ensures the mustRegister function panics when used to
// register an invalid network.
func TestMustRegisterPanic(t *testing.T) {
	t.Parallel()

	// Setup a defer to catch the expected panic to ensure it actually
	// paniced.
	defer func() {
		if err := recover(); err == nil {
			t.Error("mustRegister did not panic as expected")
		}
	}()

	// Intentionally try to register duplicate params to force a panic.
	mustRegister(&MainNetParams)
}

// TestParamsMatchUpstream ensures the magic and port of every network agree
// with the btcd parameters they are paired with.
func TestParamsMatchUpstream(t *testing.T) {
	tests := []struct {
		params *Params
		magic  wire.BitcoinNet
		port   string
	}{
		{&MainNetParams, 0xd9b4bef9, "8333"},
		{&TestNet3Params, 0x0709110b, "18333"},
		{&RegressionNetParams, 0xdab5bffa, "18444"},
	}

	for _, test := range tests {
		p := test.params
		if p.Net != test.magic {
			t.Errorf("%s: wrong magic - got %x, want %x", p.Name,
				uint32(p.Net), uint32(test.magic))
		}
		if uint32(p.Net) != uint32(p.Upstream.Net) {
			t.Errorf("%s: magic %x differs from upstream %x", p.Name,
				uint32(p.Net), uint32(p.Upstream.Net))
		}
		if p.DefaultPort != test.port || p.DefaultPort != p.Upstream.DefaultPort {
			t.Errorf("%s: wrong port %s", p.Name, p.DefaultPort)
		}
		if *p.GenesisHash != *p.Upstream.GenesisHash {
			t.Errorf("%s: wrong genesis hash %v", p.Name, p.GenesisHash)
		}

		got, err := ParamsForNet(p.Net)
		if err != nil || got != p {
			t.Errorf("%s: ParamsForNet returned %v, %v", p.Name, got, err)
		}
	}

	if _, err := ParamsForNet(0x12345678); err != ErrUnknownNet {
		t.Errorf("ParamsForNet: expected ErrUnknownNet, got %v", err)
	}
}

// TestBlockLocator ensures the locator lists checkpoints newest first and ends
// with the genesis block.
func TestBlockLocator(t *testing.T) {
	locator := MainNetParams.BlockLocator()
	if len(locator) != len(MainNetParams.Checkpoints)+1 {
		t.Fatalf("BlockLocator: wrong length %d", len(locator))
	}
	last := MainNetParams.Checkpoints[len(MainNetParams.Checkpoints)-1]
	if *locator[0] != *last.Hash {
		t.Fatalf("BlockLocator: first entry %v, want %v", locator[0],
			last.Hash)
	}
	if *locator[len(locator)-1] != *MainNetParams.GenesisHash {
		t.Fatalf("BlockLocator: last entry %v is not genesis",
			locator[len(locator)-1])
	}

	regtest := RegressionNetParams.BlockLocator()
	if len(regtest) != 1 || *regtest[0] != *RegressionNetParams.GenesisHash {
		t.Fatalf("BlockLocator: unexpected regtest locator %v", regtest)
	}
}
