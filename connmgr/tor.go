// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"errors"
	"io"
	"net"
	"time"
)

const (
	torSucceeded         = 0x00
	torGeneralError      = 0x01
	torNotAllowed        = 0x02
	torNetUnreachable    = 0x03
	torHostUnreachable   = 0x04
	torConnectionRefused = 0x05
	torTTLExpired        = 0x06
	torCmdNotSupported   = 0x07
	torAddrNotSupported  = 0x08

	// torResolve is the Tor extension to the SOCKS5 protocol that resolves
	// a host name through the Tor network.
	torResolve = 0xF0

	torATypeIPv4       = 1
	torATypeDomainName = 3
	torATypeIPv6       = 4

	// torLookupTimeout bounds the whole exchange with the proxy.
	torLookupTimeout = 30 * time.Second
)

var (
	// ErrTorInvalidAddressResponse indicates an invalid address was
	// returned by the Tor DNS resolver.
	ErrTorInvalidAddressResponse = errors.New("invalid address response")

	// ErrTorInvalidProxyResponse indicates the Tor proxy returned a
	// response in an unexpected format.
	ErrTorInvalidProxyResponse = errors.New("invalid proxy response")

	// ErrTorUnrecognizedAuthMethod indicates the authentication method
	// provided is not recognized.
	ErrTorUnrecognizedAuthMethod = errors.New("invalid proxy authentication " +
		"method")

	torStatusErrors = map[byte]error{
		torSucceeded:         errors.New("tor succeeded"),
		torGeneralError:      errors.New("tor general error"),
		torNotAllowed:        errors.New("tor not allowed"),
		torNetUnreachable:    errors.New("tor network is unreachable"),
		torHostUnreachable:   errors.New("tor host is unreachable"),
		torConnectionRefused: errors.New("tor connection refused"),
		torTTLExpired:        errors.New("tor TTL expired"),
		torCmdNotSupported:   errors.New("tor command not supported"),
		torAddrNotSupported:  errors.New("tor address type not supported"),
	}
)

// TorLookupIP uses Tor to resolve DNS via the passed SOCKS proxy.
func TorLookupIP(host, proxy string) ([]net.IP, error) {
	if len(host) > 255 {
		return nil, errors.New("host name too long")
	}

	conn, err := net.DialTimeout("tcp", proxy, torLookupTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(torLookupTimeout))

	// Greeting: version 5 offering the no authentication method only.
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return nil, err
	}

	buf := make([]byte, 2)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	if buf[0] != 0x05 {
		return nil, ErrTorInvalidProxyResponse
	}
	if buf[1] != 0x00 {
		return nil, ErrTorUnrecognizedAuthMethod
	}

	buf = make([]byte, 7+len(host))
	buf[0] = 5          // protocol version
	buf[1] = torResolve // command
	buf[2] = 0          // reserved
	buf[3] = torATypeDomainName
	buf[4] = byte(len(host))
	copy(buf[5:], host)
	// The trailing two bytes are the port, which resolve ignores.

	if _, err := conn.Write(buf); err != nil {
		return nil, err
	}

	buf = make([]byte, 4)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	if buf[0] != 5 {
		return nil, ErrTorInvalidProxyResponse
	}
	if buf[1] != torSucceeded {
		err := torStatusErrors[buf[1]]
		if err == nil {
			err = ErrTorInvalidProxyResponse
		}
		return nil, err
	}

	var ip net.IP
	switch buf[3] {
	case torATypeIPv4:
		ip = make(net.IP, net.IPv4len)
	case torATypeIPv6:
		ip = make(net.IP, net.IPv6len)
	default:
		return nil, ErrTorInvalidAddressResponse
	}
	if _, err := io.ReadFull(conn, ip); err != nil {
		return nil, ErrTorInvalidAddressResponse
	}

	return []net.IP{ip}, nil
}

// NewLookupFunc returns the lookup function to use for DNS seeding.  Names are
// resolved through the Tor proxy when one is given and by the local resolver
// otherwise.
func NewLookupFunc(torProxy string) LookupFunc {
	if torProxy == "" {
		return net.LookupIP
	}
	return func(host string) ([]net.IP, error) {
		return TorLookupIP(host, torProxy)
	}
}
