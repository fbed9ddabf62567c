// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrbook persists the addresses of bitcoin nodes learned from DNS
// seeds and peers so the next run can connect without seeding again.
package addrbook

import (
	"encoding/binary"
	"errors"
	mrand "math/rand"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/spvkit/spvpeer/wire"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrEmpty is returned by Random when the book holds no usable address.
var ErrEmpty = errors.New("address book is empty")

const (
	// keyLen is the length of an address key: the prefix, the IP in its
	// 16 byte form and the big-endian port.
	keyLen = 1 + net.IPv6len + 2

	// valueLen is the length of an address record: the unix timestamp and
	// the service flags.
	valueLen = 16
)

// addrPrefix prefixes every address key.
var addrPrefix = []byte("a")

// log is the package logger.  It is disabled until UseLogger is called.
var log = btclog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Book is an address book stored in a leveldb database.
type Book struct {
	db *leveldb.DB

	mtx  sync.Mutex
	rand *mrand.Rand
}

// Open opens the address book at path, creating it when needed.
func Open(path string) (*Book, error) {
	opts := opt.Options{
		Strict:      opt.DefaultStrict,
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(path, &opts)
	if err != nil {
		return nil, err
	}
	return &Book{
		db:   db,
		rand: mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Close closes the database.
func (b *Book) Close() error {
	return b.db.Close()
}

// addrKey returns the database key of na.
func addrKey(na *wire.NetAddress) []byte {
	key := make([]byte, keyLen)
	copy(key, addrPrefix)
	copy(key[1:], na.IP.To16())
	binary.BigEndian.PutUint16(key[1+net.IPv6len:], na.Port)
	return key
}

// encodeAddr returns the database record of na.
func encodeAddr(na *wire.NetAddress) []byte {
	value := make([]byte, valueLen)
	binary.BigEndian.PutUint64(value, uint64(na.Timestamp.Unix()))
	binary.BigEndian.PutUint64(value[8:], uint64(na.Services))
	return value
}

// decodeAddr rebuilds the address stored under key.
func decodeAddr(key, value []byte) (*wire.NetAddress, error) {
	if len(key) != keyLen || len(value) != valueLen {
		return nil, errors.New("corrupt address record")
	}
	ip := make(net.IP, net.IPv6len)
	copy(ip, key[1:1+net.IPv6len])
	port := binary.BigEndian.Uint16(key[1+net.IPv6len:])
	ts := time.Unix(int64(binary.BigEndian.Uint64(value)), 0)
	services := wire.ServiceFlag(binary.BigEndian.Uint64(value[8:]))
	return wire.NewNetAddressTimestamp(ts, services, ip, port), nil
}

// Put stores addrs.  An address already in the book keeps the newer of the
// two timestamps.
func (b *Book) Put(addrs ...*wire.NetAddress) error {
	batch := new(leveldb.Batch)
	for _, na := range addrs {
		if na.IP.To16() == nil || na.Port == 0 {
			continue
		}
		key := addrKey(na)
		existing, err := b.db.Get(key, nil)
		switch {
		case errors.Is(err, leveldb.ErrNotFound):
		case err != nil:
			return err
		default:
			old, err := decodeAddr(key, existing)
			if err == nil && !na.Timestamp.After(old.Timestamp) {
				continue
			}
		}
		batch.Put(key, encodeAddr(na))
	}
	if batch.Len() == 0 {
		return nil
	}

	log.Debugf("Storing %d addresses", batch.Len())
	return b.db.Write(batch, nil)
}

// Remove deletes na from the book.
func (b *Book) Remove(na *wire.NetAddress) error {
	return b.db.Delete(addrKey(na), nil)
}

// forEach calls fn with every stored address.
func (b *Book) forEach(fn func(na *wire.NetAddress)) error {
	iter := b.db.NewIterator(util.BytesPrefix(addrPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		na, err := decodeAddr(iter.Key(), iter.Value())
		if err != nil {
			log.Warnf("Skipping address record %x: %v", iter.Key(), err)
			continue
		}
		fn(na)
	}
	return iter.Error()
}

// Count returns the number of stored addresses.
func (b *Book) Count() (int, error) {
	n := 0
	err := b.forEach(func(*wire.NetAddress) { n++ })
	return n, err
}

// Random returns a random address that has at least the services in
// reqServices.  ErrEmpty is returned when there is none.
func (b *Book) Random(reqServices wire.ServiceFlag) (*wire.NetAddress, error) {
	var candidates []*wire.NetAddress
	err := b.forEach(func(na *wire.NetAddress) {
		if na.HasService(reqServices) {
			candidates = append(candidates, na)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrEmpty
	}

	b.mtx.Lock()
	idx := b.rand.Intn(len(candidates))
	b.mtx.Unlock()
	return candidates[idx], nil
}
