package ars430

import (
	"encoding/binary"
	"fmt"
)

// STATUS payload layout (big-endian, no padding). The 26-byte serial number
// splits the frame into a fixed section before it and a fixed section after
// it; offsets below are relative to the start of each section.
const (
	SERIAL_NUMBER_START = 29 // CRC(2) + Len(2) + SQC(1) + 3 part numbers (8 each)
	SERIAL_NUMBER_LEN   = 26
	STATUS_TAIL_LEN     = 42 // versions, CRCs, clocks, state bytes, range limits
	STATUS_FRAME_LEN    = SERIAL_NUMBER_START + SERIAL_NUMBER_LEN + STATUS_TAIL_LEN

	// CurrentDamping arrives as a u32 on a vendor fixed-point scale:
	// dB = (raw*DAMPING_LSB - DAMPING_OFFSET) / DAMPING_DIVISOR.
	DAMPING_LSB     = 0.931322575049159
	DAMPING_OFFSET  = 2_000_000_000.0
	DAMPING_DIVISOR = 100_000_000.0

	// Range limits arrive as u16 in 0.1 m units.
	MAX_RANGE_LSB_M = 0.1
)

// DecodeStatus decodes the payload following the 16-byte header of a STATUS
// packet. The input must hold the full fixed frame; trailing bytes beyond it
// are ignored.
func DecodeStatus(data []byte) (*Status, error) {
	if len(data) < STATUS_FRAME_LEN {
		return nil, fmt.Errorf("%w: status frame needs %d bytes, have %d",
			ErrTruncatedPacket, STATUS_FRAME_LEN, len(data))
	}

	s := &Status{
		CRC:                binary.BigEndian.Uint16(data[0:2]),
		Len:                binary.BigEndian.Uint16(data[2:4]),
		SQC:                data[4],
		PartNumber:         binary.BigEndian.Uint64(data[5:13]),
		AssemblyPartNumber: binary.BigEndian.Uint64(data[13:21]),
		SWPartNumber:       binary.BigEndian.Uint64(data[21:29]),
	}
	copy(s.SerialNumber[:], data[SERIAL_NUMBER_START:SERIAL_NUMBER_START+SERIAL_NUMBER_LEN])

	// Everything after the serial number is fixed-width again.
	tail := data[SERIAL_NUMBER_START+SERIAL_NUMBER_LEN:]

	s.BLVersion = mergeVersion(tail[0], tail[1], tail[2])
	s.BLCRC = binary.BigEndian.Uint32(tail[3:7])
	s.SWVersion = mergeVersion(tail[7], tail[8], tail[9])
	s.SWCRC = binary.BigEndian.Uint32(tail[10:14])
	s.UTCTimestamp = binary.BigEndian.Uint64(tail[14:22])
	s.Timestamp = binary.BigEndian.Uint32(tail[22:26])

	rawDamping := binary.BigEndian.Uint32(tail[26:30])
	s.CurrentDamping = (float64(rawDamping)*DAMPING_LSB - DAMPING_OFFSET) / DAMPING_DIVISOR

	s.OpState = tail[30]
	s.CurrentFarCF = tail[31]
	s.CurrentNearCF = tail[32]
	s.Defective = tail[33]
	s.SupplyVoltLimit = tail[34]
	s.SensorOffTemp = tail[35]
	s.GmMissing = tail[36]
	s.TxOutReduced = tail[37]

	s.MaximumRangeFar = float64(binary.BigEndian.Uint16(tail[38:40])) * MAX_RANGE_LSB_M
	s.MaximumRangeNear = float64(binary.BigEndian.Uint16(tail[40:42])) * MAX_RANGE_LSB_M

	return s, nil
}

// mergeVersion assembles the sensor's three-byte version fields into one
// word: (b1<<16)|(b2<<8)|b3.
func mergeVersion(b1, b2, b3 byte) uint32 {
	return uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
}
