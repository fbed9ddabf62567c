// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// MaxVarIntPayload is the maximum payload size for a variable length
	// integer.
	MaxVarIntPayload = 9

	// maxUserAgentLen is the maximum allowed length for the user agent
	// field in a version message.
	maxUserAgentLen = 256
)

var (
	// littleEndian is a convenience variable since binary.LittleEndian is
	// quite long.
	littleEndian = binary.LittleEndian

	// bigEndian is a convenience variable since binary.BigEndian is quite
	// long.
	bigEndian = binary.BigEndian
)

// errNonCanonicalVarInt is the common format string used for non-canonically
// encoded variable length integer errors.
var errNonCanonicalVarInt = "non-canonical varint %x - discriminant %x must " +
	"encode a value greater than %x"

// uint32Time represents a unix timestamp encoded with a uint32.  It is used as
// a way to signal the readElement function how to decode a timestamp into a Go
// time.Time since it is otherwise ambiguous.
type uint32Time time.Time

// int64Time represents a unix timestamp encoded with an int64.  It is used as
// a way to signal the readElement function how to decode a timestamp into a Go
// time.Time since it is otherwise ambiguous.
type int64Time time.Time

// readElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func readElement(r io.Reader, element interface{}) error {
	// Attempt to read the element based on the concrete type via fast
	// type assertions first.
	switch e := element.(type) {
	case *int32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = int32(littleEndian.Uint32(b[:]))
		return nil

	case *uint32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint32(b[:])
		return nil

	case *int64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = int64(littleEndian.Uint64(b[:]))
		return nil

	case *uint64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = littleEndian.Uint64(b[:])
		return nil

	case *bool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = b[0] != 0x00
		return nil

	case *uint8:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		*e = b[0]
		return nil

	// Unix timestamp encoded as a uint32.
	case *uint32Time:
		var rv uint32
		if err := readElement(r, &rv); err != nil {
			return err
		}
		*e = uint32Time(time.Unix(int64(rv), 0))
		return nil

	// Unix timestamp encoded as an int64.
	case *int64Time:
		var rv int64
		if err := readElement(r, &rv); err != nil {
			return err
		}
		*e = int64Time(time.Unix(rv, 0))
		return nil

	// Message header checksum.
	case *[4]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	// Message header command.
	case *[CommandSize]uint8:
		_, err := io.ReadFull(r, e[:])
		return err

	// IP address.
	case *[16]byte:
		_, err := io.ReadFull(r, e[:])
		return err

	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err

	case *ServiceFlag:
		var rv uint64
		if err := readElement(r, &rv); err != nil {
			return err
		}
		*e = ServiceFlag(rv)
		return nil

	case *InvType:
		var rv uint32
		if err := readElement(r, &rv); err != nil {
			return err
		}
		*e = InvType(rv)
		return nil

	case *BitcoinNet:
		var rv uint32
		if err := readElement(r, &rv); err != nil {
			return err
		}
		*e = BitcoinNet(rv)
		return nil

	case *BloomUpdateType:
		var rv uint8
		if err := readElement(r, &rv); err != nil {
			return err
		}
		*e = BloomUpdateType(rv)
		return nil

	case *RejectCode:
		var rv uint8
		if err := readElement(r, &rv); err != nil {
			return err
		}
		*e = RejectCode(rv)
		return nil
	}

	// Fall back to the slower binary.Read if a fast path was not available
	// above.
	return binary.Read(r, littleEndian, element)
}

// readElements reads multiple items from r.  It is equivalent to multiple
// calls to readElement.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := readElement(r, element); err != nil {
			return err
		}
	}
	return nil
}

// writeElement writes the little endian representation of element to w.
func writeElement(w io.Writer, element interface{}) error {
	// Attempt to write the element based on the concrete type via fast
	// type assertions first.
	switch e := element.(type) {
	case int32:
		var b [4]byte
		littleEndian.PutUint32(b[:], uint32(e))
		_, err := w.Write(b[:])
		return err

	case uint32:
		var b [4]byte
		littleEndian.PutUint32(b[:], e)
		_, err := w.Write(b[:])
		return err

	case int64:
		var b [8]byte
		littleEndian.PutUint64(b[:], uint64(e))
		_, err := w.Write(b[:])
		return err

	case uint64:
		var b [8]byte
		littleEndian.PutUint64(b[:], e)
		_, err := w.Write(b[:])
		return err

	case bool:
		b := []byte{0x00}
		if e {
			b[0] = 0x01
		}
		_, err := w.Write(b)
		return err

	case uint8:
		_, err := w.Write([]byte{e})
		return err

	// Message header checksum.
	case [4]byte:
		_, err := w.Write(e[:])
		return err

	// Message header command.
	case [CommandSize]uint8:
		_, err := w.Write(e[:])
		return err

	// IP address.
	case [16]byte:
		_, err := w.Write(e[:])
		return err

	case *chainhash.Hash:
		_, err := w.Write(e[:])
		return err

	case ServiceFlag:
		return writeElement(w, uint64(e))

	case InvType:
		return writeElement(w, uint32(e))

	case BitcoinNet:
		return writeElement(w, uint32(e))

	case BloomUpdateType:
		return writeElement(w, uint8(e))

	case RejectCode:
		return writeElement(w, uint8(e))
	}

	// Fall back to the slower binary.Write if a fast path was not available
	// above.
	return binary.Write(w, littleEndian, element)
}

// writeElements writes multiple items to w.  It is equivalent to multiple
// calls to writeElement.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := writeElement(w, element); err != nil {
			return err
		}
	}
	return nil
}

// ReadVarInt reads a variable length integer from r and returns it as a uint64.
func ReadVarInt(r io.Reader, pver uint32) (uint64, error) {
	var discriminant uint8
	if err := readElement(r, &discriminant); err != nil {
		return 0, err
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		var sv uint64
		if err := readElement(r, &sv); err != nil {
			return 0, err
		}
		rv = sv

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x100000000)
		if rv < min {
			return 0, messageError("ReadVarInt", fmt.Sprintf(
				errNonCanonicalVarInt, rv, discriminant, min))
		}

	case 0xfe:
		var sv uint32
		if err := readElement(r, &sv); err != nil {
			return 0, err
		}
		rv = uint64(sv)

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x10000)
		if rv < min {
			return 0, messageError("ReadVarInt", fmt.Sprintf(
				errNonCanonicalVarInt, rv, discriminant, min))
		}

	case 0xfd:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		rv = uint64(littleEndian.Uint16(b[:]))

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0xfd)
		if rv < min {
			return 0, messageError("ReadVarInt", fmt.Sprintf(
				errNonCanonicalVarInt, rv, discriminant, min))
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, pver uint32, val uint64) error {
	switch {
	case val < 0xfd:
		return writeElement(w, uint8(val))

	case val <= math.MaxUint16:
		var b [3]byte
		b[0] = 0xfd
		littleEndian.PutUint16(b[1:], uint16(val))
		_, err := w.Write(b[:])
		return err

	case val <= math.MaxUint32:
		if err := writeElement(w, uint8(0xfe)); err != nil {
			return err
		}
		return writeElement(w, uint32(val))

	default:
		if err := writeElement(w, uint8(0xff)); err != nil {
			return err
		}
		return writeElement(w, val)
	}
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= math.MaxUint16:
		return 3
	case val <= math.MaxUint32:
		return 5
	}
	return 9
}

// ReadVarString reads a variable length string from r and returns it as a Go
// string.  A variable length string is encoded as a variable length integer
// containing the length of the string followed by the bytes that represent the
// string itself.  An error is returned if the length is greater than the
// maximum block payload size since it helps protect against memory exhaustion
// attacks and forced panics through malformed messages.
func ReadVarString(r io.Reader, pver uint32) (string, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return "", err
	}

	// Prevent variable length strings that are larger than the maximum
	// message size.  It would be possible to cause memory exhaustion and
	// panics without a sane upper bound on this count.
	if count > MaxMessagePayload {
		str := fmt.Sprintf("variable length string is too long "+
			"[count %d, max %d]", count, MaxMessagePayload)
		return "", messageError("ReadVarString", str)
	}

	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteVarString serializes str to w as a variable length integer containing
// the length of the string followed by the bytes that represent the string
// itself.
func WriteVarString(w io.Writer, pver uint32, str string) error {
	if err := WriteVarInt(w, pver, uint64(len(str))); err != nil {
		return err
	}
	_, err := w.Write([]byte(str))
	return err
}

// ReadVarBytes reads a variable length byte array.  A byte array is encoded
// as a varInt containing the length of the array followed by the bytes
// themselves.  An error is returned if the length is greater than the
// passed maxAllowed parameter which helps protect against memory exhaustion
// attacks and forced panics through malformed messages.  The fieldName
// parameter is only used for the error message so it provides more context in
// the error.
func ReadVarBytes(r io.Reader, pver uint32, maxAllowed uint32,
	fieldName string) ([]byte, error) {

	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}

	// Prevent byte array larger than the max message size.  It would
	// be possible to cause memory exhaustion and panics without a sane
	// upper bound on this count.
	if count > uint64(maxAllowed) {
		str := fmt.Sprintf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", str)
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w as a varInt
// containing the number of bytes, followed by the bytes themselves.
func WriteVarBytes(w io.Writer, pver uint32, bytes []byte) error {
	slen := uint64(len(bytes))
	if err := WriteVarInt(w, pver, slen); err != nil {
		return err
	}

	_, err := w.Write(bytes)
	return err
}

// randomUint64 returns a cryptographically random uint64 value.  This
// unexported version takes a reader primarily to ensure the error paths
// can be properly tested by passing a fake reader in the tests.
func randomUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return littleEndian.Uint64(b[:]), nil
}

// RandomUint64 returns a cryptographically random uint64 value.
func RandomUint64() (uint64, error) {
	return randomUint64(rand.Reader)
}
