package ars430

import (
	"encoding/binary"
	"fmt"
)

// ARS430 packet header layout. Every packet opens with a 16-byte header:
// bytes [0:4] are a big-endian magic identifying the packet class, bytes
// [4:8] carry the AUTOSAR end-to-end length field, bytes [8:16] are not
// examined (their meaning is not documented by the sensor).
const (
	HEADER_LEN = 16 // bytes before the payload in every packet

	MAGIC_STATUS = 0x00C80000
	MAGIC_FAR0   = 0x00DC0001
	MAGIC_FAR1   = 0x00DC0002
	MAGIC_NEAR0  = 0x00DC0003
	MAGIC_NEAR1  = 0x00DC0004
	MAGIC_NEAR2  = 0x00DC0005
)

// Header is the classified 16-byte packet prefix.
type Header struct {
	Type      HeaderType
	E2ELength uint32 // end-to-end length field, bytes [4:8]; passed through unvalidated
}

// ClassifyHeader inspects the first 16 bytes of a raw packet and returns the
// packet class. It returns ErrMalformedHeader when the buffer cannot hold a
// full header, and ErrUnknownHeader when the magic matches no known class;
// both are per-packet skips, not process failures.
func ClassifyHeader(data []byte) (Header, error) {
	if len(data) < HEADER_LEN {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrMalformedHeader, len(data), HEADER_LEN)
	}

	magic := binary.BigEndian.Uint32(data[0:4])
	e2e := binary.BigEndian.Uint32(data[4:8])

	var t HeaderType
	switch magic {
	case MAGIC_STATUS:
		t = HeaderStatus
	case MAGIC_FAR0:
		t = HeaderFar0
	case MAGIC_FAR1:
		t = HeaderFar1
	case MAGIC_NEAR0:
		t = HeaderNear0
	case MAGIC_NEAR1:
		t = HeaderNear1
	case MAGIC_NEAR2:
		t = HeaderNear2
	default:
		return Header{}, fmt.Errorf("%w: 0x%08x", ErrUnknownHeader, magic)
	}

	return Header{Type: t, E2ELength: e2e}, nil
}
