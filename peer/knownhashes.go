// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"
	"container/list"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// knownTxHashes tracks the transaction hashes that were sent to or received
// from the remote peer on the current connection.  The oldest entries are
// evicted once the limit is reached.
type knownTxHashes struct {
	mtx   sync.Mutex
	cache lru.Cache
}

// newKnownTxHashes returns a set holding at most limit hashes.
func newKnownTxHashes(limit uint) *knownTxHashes {
	return &knownTxHashes{cache: lru.NewCache(limit)}
}

// Exists returns whether hash is known.
//
// This function is safe for concurrent access.
func (k *knownTxHashes) Exists(hash chainhash.Hash) bool {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	return k.cache.Contains(hash)
}

// Add marks hash as known.
//
// This function is safe for concurrent access.
func (k *knownTxHashes) Add(hash chainhash.Hash) {
	k.mtx.Lock()
	k.cache.Add(hash)
	k.mtx.Unlock()
}

// AddNew marks hash as known and reports whether it was unknown before.
// The check and insert are atomic so two concurrent callers never both see
// true for the same hash.
//
// This function is safe for concurrent access.
func (k *knownTxHashes) AddNew(hash chainhash.Hash) bool {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.cache.Contains(hash) {
		return false
	}
	k.cache.Add(hash)
	return true
}

// knownBlockHashes keeps the block hashes announced by the remote peer in the
// order they were announced, limited to a maximum number of entries with
// eviction of the oldest entry when the limit is exceeded.  The order is kept
// so blocks can be requested again starting from a given hash.
type knownBlockHashes struct {
	mtx       sync.Mutex
	blockMap  map[chainhash.Hash]*list.Element // nearly O(1) lookups
	blockList *list.List                       // O(1) insert, delete
	limit     uint
}

// String returns the list as a human-readable string.
//
// This function is safe for concurrent access.
func (m *knownBlockHashes) String() string {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	buf := bytes.NewBufferString("[")
	for node := m.blockList.Front(); node != nil; node = node.Next() {
		buf.WriteString(node.Value.(chainhash.Hash).String())
		if node.Next() != nil {
			buf.WriteString(", ")
		}
	}
	buf.WriteString("]")

	return fmt.Sprintf("<%d>%s", m.limit, buf.String())
}

// Len returns the number of hashes in the list.
//
// This function is safe for concurrent access.
func (m *knownBlockHashes) Len() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.blockList.Len()
}

// Exists returns whether or not the passed hash is in the list.
//
// This function is safe for concurrent access.
func (m *knownBlockHashes) Exists(hash chainhash.Hash) bool {
	m.mtx.Lock()
	_, exists := m.blockMap[hash]
	m.mtx.Unlock()

	return exists
}

// Add appends the passed hash to the list and handles eviction of the oldest
// item if adding the new item would exceed the max limit.  Adding an existing
// item does not change its position.
//
// This function is safe for concurrent access.
func (m *knownBlockHashes) Add(hash chainhash.Hash) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	// When the limit is zero, nothing can be added to the list, so just
	// return.
	if m.limit == 0 {
		return
	}
	if _, exists := m.blockMap[hash]; exists {
		return
	}

	// Evict the oldest entry (front of the list) if the new entry would
	// exceed the size limit.  Also reuse the list node so a new one
	// doesn't have to be allocated.
	if uint(len(m.blockMap))+1 > m.limit {
		node := m.blockList.Front()
		delete(m.blockMap, node.Value.(chainhash.Hash))

		node.Value = hash
		m.blockList.MoveToBack(node)
		m.blockMap[hash] = node
		return
	}

	m.blockMap[hash] = m.blockList.PushBack(hash)
}

// TrimBefore drops every hash announced before from and returns the
// remaining hashes, from included, in announcement order.  Nothing is
// changed and nil is returned when from is not in the list.
//
// This function is safe for concurrent access.
func (m *knownBlockHashes) TrimBefore(from chainhash.Hash) []chainhash.Hash {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	start, exists := m.blockMap[from]
	if !exists {
		return nil
	}

	for node := m.blockList.Front(); node != start; {
		next := node.Next()
		delete(m.blockMap, node.Value.(chainhash.Hash))
		m.blockList.Remove(node)
		node = next
	}

	hashes := make([]chainhash.Hash, 0, m.blockList.Len())
	for node := start; node != nil; node = node.Next() {
		hashes = append(hashes, node.Value.(chainhash.Hash))
	}
	return hashes
}

// newKnownBlockHashes returns a new list that is limited to the number of
// entries specified by limit.
func newKnownBlockHashes(limit uint) *knownBlockHashes {
	return &knownBlockHashes{
		blockMap:  make(map[chainhash.Hash]*list.Element),
		blockList: list.New(),
		limit:     limit,
	}
}
