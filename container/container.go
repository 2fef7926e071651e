// Package container implements the on-image header layout described in
// spec §3: a fixed-width magic, a payload size, an extension-length/
// extension pair, and (conceptually) the payload region that follows.
// Container itself only serializes and parses the header; the payload
// bytes are handled by callers via bitio once the header's bit offsets
// are known.
package container

import (
	"errors"
	"fmt"

	"github.com/zanicar/stegofs/bitio"
)

// Magic is the fixed 32-bit value that marks a valid container.
const Magic uint32 = 0x05354454

// Field widths, in bits.
const (
	MagicBits       = 32
	PayloadSizeBits = 32
	ExtLengthBits   = 8

	// HeaderBits is the number of bits occupied by magic, payload_size and
	// ext_length — every container's fixed-width prefix, before the
	// variable-length extension field.
	HeaderBits = MagicBits + PayloadSizeBits + ExtLengthBits
)

// MaxExtLength is the largest permitted ext_length value (spec §3).
const MaxExtLength = 10

// ErrBadMagic is reported when the first 32 bits of an image do not match
// Magic. Per spec §4.2 this is reported as an "empty container", not a
// hard error, by Parse; callers that require an existing container
// (extract) turn it into a user-visible invalid-stego-image failure.
var ErrBadMagic = errors.New("container: magic mismatch")

// ErrCorrupt is reported when a magic match is followed by a structurally
// invalid header (ext_length > 10, or payload_size exceeding capacity).
var ErrCorrupt = errors.New("container: corrupt header")

// Header is the parsed or to-be-serialized fixed-format prefix of a
// container.
type Header struct {
	PayloadSize int
	Extension   string
}

// Encode serializes magic, PayloadSize, ext_length and the extension bytes
// into d starting at bit address 0, and returns the bit address at which
// the payload region begins. It does not write payload bytes.
func Encode(d []byte, h Header) (payloadStart int, err error) {
	if len(h.Extension) > MaxExtLength {
		return 0, fmt.Errorf("container: encode: %w: ext_length %d", ErrCorrupt, len(h.Extension))
	}
	p := 0
	bitio.WriteBits(d, uint64(Magic), MagicBits, &p)
	bitio.WriteBits(d, uint64(h.PayloadSize), PayloadSizeBits, &p)
	bitio.WriteBits(d, uint64(len(h.Extension)), ExtLengthBits, &p)
	bitio.WriteByteString(d, []byte(h.Extension), &p)
	return p, nil
}

// Parse reads the header fields from d (an image buffer with the stated
// bit capacity) starting at bit address 0. If the magic does not match,
// Parse returns ErrBadMagic and a zero Header — this is the "empty
// container" case, not a format error. If the magic matches but
// ext_length or payload_size violate capacity, Parse returns ErrCorrupt.
func Parse(d []byte, capacityBits int) (h Header, payloadStart int, err error) {
	p := 0
	magic := bitio.ReadBits(d, MagicBits, &p)
	if uint32(magic) != Magic {
		return Header{}, 0, ErrBadMagic
	}

	payloadSize := bitio.ReadBits(d, PayloadSizeBits, &p)
	extLen := bitio.ReadBits(d, ExtLengthBits, &p)
	if extLen > MaxExtLength {
		return Header{}, 0, fmt.Errorf("container: parse: %w: ext_length %d", ErrCorrupt, extLen)
	}

	extBytes := bitio.ReadByteString(d, int(extLen), &p)

	capacityBytes := capacityBits / 8
	overhead := (HeaderBits + 8*int(extLen) + 7) / 8
	if int(payloadSize) > capacityBytes-overhead {
		return Header{}, 0, fmt.Errorf("container: parse: %w: payload_size %d exceeds capacity %d", ErrCorrupt, payloadSize, capacityBytes-overhead)
	}

	return Header{
		PayloadSize: int(payloadSize),
		Extension:   string(extBytes),
	}, p, nil
}
