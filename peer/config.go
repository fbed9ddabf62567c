// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"net"
	"time"

	"github.com/spvkit/spvpeer/chaincfg"
	"github.com/spvkit/spvpeer/wire"
)

const (
	// DefaultConnectTimeout is the time allowed for the TCP connect to
	// complete.
	DefaultConnectTimeout = 3 * time.Second

	// DefaultMaxMessageLength is the largest payload accepted from a peer.
	DefaultMaxMessageLength = 0x02000000

	// DefaultMaxGetDataHashes is the maximum number of hashes a single
	// getdata request may carry.
	DefaultMaxGetDataHashes = 50000

	// DefaultMaxKnownTxHashes is the number of transaction hashes remembered
	// per connection.
	DefaultMaxKnownTxHashes = 10000

	// DefaultMaxKnownBlockHashes is the number of announced block hashes
	// remembered per connection for RerequestBlocks.
	DefaultMaxKnownBlockHashes = DefaultMaxGetDataHashes

	// keepAlivePeriod is the TCP keep-alive probe interval.
	keepAlivePeriod = 30 * time.Second

	// maxTxPerInv is the number of transaction inventory vectors in one inv
	// above which a peer is considered abusive.
	maxTxPerInv = 10000

	// maxBlockInvBeforeContinuation is the number of block hashes in an inv
	// that triggers an immediate getblocks for the next batch.
	maxBlockInvBeforeContinuation = 500

	// maxAddrFutureDrift is how far in the future an advertised address
	// timestamp may be before it is replaced.
	maxAddrFutureDrift = 10 * time.Minute

	// unknownAddrAge is the age assigned to addresses with missing or bogus
	// timestamps.
	unknownAddrAge = 5 * 24 * time.Hour

	// addrTimePenalty is subtracted from every relayed address timestamp.
	addrTimePenalty = 2 * time.Hour

	// headersSyncSlack is subtracted from the earliest key time when deciding
	// whether header sync has reached the blocks that need filtering.  It
	// covers a week of miner clock skew plus the allowed block time drift.
	headersSyncSlack = 7*24*time.Hour + 2*time.Hour
)

// DialFunc is the signature of the function used to open the connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config is the struct to hold configuration options useful to Peer.
type Config struct {
	// ChainParams identifies which chain parameters the peer is associated
	// with.  It is highly recommended to specify this field, however it can
	// be omitted in which case the test network will be used.
	ChainParams *chaincfg.Params

	// ProtocolVersion specifies the maximum protocol version to use and
	// advertise.  This field can be omitted in which case
	// wire.ProtocolVersion will be used.
	ProtocolVersion uint32

	// MinProtocolVersion is the lowest version a remote peer may advertise.
	// Peers below it receive a reject and are disconnected.  Defaults to
	// wire.MinProtocolVersion.
	MinProtocolVersion uint32

	// Services specifies which services to advertise as supported by the
	// local peer.  A wallet serves no blocks so the default is none.
	Services wire.ServiceFlag

	// UserAgentName specifies the user agent name to advertise.  It is
	// highly recommended to specify this value.
	UserAgentName string

	// UserAgentVersion specifies the user agent version to advertise.  It
	// is highly recommended to specify this value and that it follows the
	// form "major.minor.revision" e.g. "2.6.41".
	UserAgentVersion string

	// UserAgentComments specify the user agent comments to advertise.  These
	// values must not contain the illegal characters specified in BIP 14:
	// '/', ':', '(', ')'.
	UserAgentComments []string

	// ConnectTimeout bounds the TCP connect.  Defaults to
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// MaxMessageLength is the largest frame payload accepted.  A peer that
	// declares more is disconnected.  Defaults to DefaultMaxMessageLength.
	MaxMessageLength uint32

	// MaxGetDataHashes caps SendGetData and inbound getdata requests.
	MaxGetDataHashes int

	// MaxKnownTxHashes and MaxKnownBlockHashes bound the per connection
	// known hash sets.
	MaxKnownTxHashes    uint
	MaxKnownBlockHashes uint

	// Proxy is the address of a SOCKS5 proxy to connect through.  Empty
	// means a direct connection.
	Proxy string

	// ProxyUser and ProxyPass are the optional SOCKS5 credentials.
	ProxyUser string
	ProxyPass string

	// TorIsolation requests a fresh circuit per connection by sending
	// random proxy credentials.
	TorIsolation bool

	// Dial overrides how the connection is opened.  When set, Proxy and
	// ConnectTimeout are ignored other than through the passed context.
	Dial DialFunc

	// AllowRelayTx tells the remote peer to relay transactions before a
	// filter is loaded.  SPV wallets leave it off and load a filter first.
	AllowRelayTx bool
}

// withDefaults returns a copy of cfg with zero values replaced by defaults.
func (cfg Config) withDefaults() Config {
	if cfg.ChainParams == nil {
		cfg.ChainParams = &chaincfg.TestNet3Params
	}
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = wire.ProtocolVersion
	}
	if cfg.MinProtocolVersion == 0 {
		cfg.MinProtocolVersion = wire.MinProtocolVersion
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.MaxGetDataHashes <= 0 {
		cfg.MaxGetDataHashes = DefaultMaxGetDataHashes
	}
	if cfg.MaxKnownTxHashes == 0 {
		cfg.MaxKnownTxHashes = DefaultMaxKnownTxHashes
	}
	if cfg.MaxKnownBlockHashes == 0 {
		cfg.MaxKnownBlockHashes = DefaultMaxKnownBlockHashes
	}
	return cfg
}
