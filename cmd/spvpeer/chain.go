// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spvkit/spvpeer/chaincfg"
	"github.com/spvkit/spvpeer/wire"
)

const (
	// maxReorgDepth is how far below the tip header heights are kept.
	maxReorgDepth = 2016

	// locatorHashes is the number of recent tip hashes put in front of the
	// checkpoints in a block locator.
	locatorHashes = 10
)

// headerChain tracks the heights of the headers relayed by the peer so the
// best height can be advertised and header sync resumes from the tip.  It
// does not validate proof of work; the peer is trusted for the chain it
// serves.
type headerChain struct {
	mtx       sync.Mutex
	params    *chaincfg.Params
	heights   map[chainhash.Hash]int32
	tipHeight int32
	recent    []chainhash.Hash // newest last
}

// newHeaderChain returns a chain that knows the genesis block and the
// checkpoints of params.
func newHeaderChain(params *chaincfg.Params) *headerChain {
	c := &headerChain{
		params:  params,
		heights: make(map[chainhash.Hash]int32, maxReorgDepth),
	}
	c.heights[*params.GenesisHash] = 0
	c.recent = append(c.recent, *params.GenesisHash)
	for _, cp := range params.Checkpoints {
		c.heights[*cp.Hash] = cp.Height
		c.tipHeight = cp.Height
		c.recent = append(c.recent, *cp.Hash)
	}
	return c
}

// connect adds header to the chain.  It returns the height of the header and
// false when its parent is unknown.
func (c *headerChain) connect(header *wire.BlockHeader) (int32, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	hash := header.BlockHash()
	if height, ok := c.heights[hash]; ok {
		return height, true
	}
	prevHeight, ok := c.heights[header.PrevBlock]
	if !ok {
		return 0, false
	}

	height := prevHeight + 1
	c.heights[hash] = height
	if height > c.tipHeight {
		c.tipHeight = height
		c.recent = append(c.recent, hash)
		if len(c.recent) > locatorHashes {
			c.recent = c.recent[len(c.recent)-locatorHashes:]
		}
	}

	if height%maxReorgDepth == 0 {
		c.prune()
	}
	return height, true
}

// prune forgets the heights of headers too deep to be reorganized.  The
// genesis block and checkpoints stay.
//
// This function MUST be called with the chain lock held.
func (c *headerChain) prune() {
	cutoff := c.tipHeight - maxReorgDepth
	for hash, height := range c.heights {
		if height < cutoff && !c.pinned(hash) {
			delete(c.heights, hash)
		}
	}
}

// pinned reports whether hash is the genesis block or a checkpoint.
func (c *headerChain) pinned(hash chainhash.Hash) bool {
	if hash == *c.params.GenesisHash {
		return true
	}
	for _, cp := range c.params.Checkpoints {
		if hash == *cp.Hash {
			return true
		}
	}
	return false
}

// bestHeight returns the height of the best known header.
func (c *headerChain) bestHeight() int32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.tipHeight
}

// locator returns a block locator starting at the best known header followed
// by the checkpoints and the genesis block.
func (c *headerChain) locator() []*chainhash.Hash {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	seen := make(map[chainhash.Hash]struct{}, len(c.recent))
	locator := make([]*chainhash.Hash, 0, len(c.recent)+
		len(c.params.Checkpoints)+1)
	for i := len(c.recent) - 1; i >= 0; i-- {
		hash := c.recent[i]
		seen[hash] = struct{}{}
		locator = append(locator, &hash)
	}
	for _, hash := range c.params.BlockLocator() {
		if _, ok := seen[*hash]; !ok {
			locator = append(locator, hash)
		}
	}
	return locator
}
