package ars430

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Event payload layout (big-endian, no padding). The first 32 bytes are the
// event header; the detection list follows as consecutive 28-byte records.
const (
	EVENT_HEADER_LEN     = 32
	DETECTION_RECORD_LEN = 28

	// 16-bit quantities are quantised over the full signed/unsigned span;
	// 65534 is the vendor's full-scale divisor (0xFFFF is reserved).
	QUANT_16 = 65534.0
	// 8-bit probabilities are quantised over 0..254 (0xFF is reserved).
	QUANT_PROB = 254.0

	RANGE_FULL_SCALE_M      = 300.0 // m at full scale
	VELOCITY_FULL_SCALE_MPS = 300.0 // m/s at full scale
	ANGLE_FULL_SCALE_RAD    = 2 * math.Pi
	RCS_FULL_SCALE_DBM2     = 200.0 // dBm^2 at full scale
	VARIANCE_FULL_SCALE     = 10.0  // m^2 / (m/s)^2 at full scale
	VAMBIG_FULL_SCALE_MPS   = 200.0 // m/s at full scale

	// SNR arrives as a u8 offset-encoded in 0.1 dBr steps from -11 dBr.
	SNR_OFFSET_DBR = 110.0
	SNR_LSB_DBR    = 10.0
)

// DecodeEvent decodes the payload following the 16-byte header of a FAR or
// NEAR packet. The caller stamps EventType with the classified header type.
//
// The detection list is decoded from the bytes after the event header in
// consecutive 28-byte records, stopping at the declared per-packet count or
// at the end of the buffer, whichever comes first. A short final record is
// not decoded and is not an error: the sensor pads some packets, and a
// truncated tail must not discard the detections already read.
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < EVENT_HEADER_LEN {
		return nil, fmt.Errorf("%w: event header needs %d bytes, have %d",
			ErrTruncatedPacket, EVENT_HEADER_LEN, len(data))
	}

	e := &Event{
		CRC:                binary.BigEndian.Uint16(data[0:2]),
		Len:                binary.BigEndian.Uint16(data[2:4]),
		SQC:                data[4],
		MessageCounter:     data[5],
		UtcTimeStamp:       binary.BigEndian.Uint64(data[6:14]),
		Timestamp:          binary.BigEndian.Uint32(data[14:18]),
		MeasureCounter:     binary.BigEndian.Uint32(data[18:22]),
		CycleCounter:       binary.BigEndian.Uint32(data[22:26]),
		NofDetections:      binary.BigEndian.Uint16(data[26:28]),
		CenterFreq:         data[30],
		DetectionsInPacket: data[31],
	}

	rawVambig := int16(binary.BigEndian.Uint16(data[28:30]))
	e.Vambig = float64(rawVambig) / QUANT_16 * VAMBIG_FULL_SCALE_MPS

	if e.DetectionsInPacket > 0 {
		e.Detections = decodeDetections(data[EVENT_HEADER_LEN:], int(e.DetectionsInPacket))
	}

	return e, nil
}

// decodeDetections consumes buf in non-overlapping 28-byte records, stopping
// when count records have been decoded or fewer than 28 bytes remain.
func decodeDetections(buf []byte, count int) []Detection {
	avail := len(buf) / DETECTION_RECORD_LEN
	if count > avail {
		count = avail
	}
	if count <= 0 {
		return nil
	}

	detections := make([]Detection, 0, count)
	for i := 0; i < count; i++ {
		rec := buf[i*DETECTION_RECORD_LEN : (i+1)*DETECTION_RECORD_LEN]
		detections = append(detections, decodeDetection(rec))
	}
	return detections
}

// decodeDetection decodes one 28-byte detection record into physical units.
func decodeDetection(rec []byte) Detection {
	rawRange := binary.BigEndian.Uint16(rec[0:2])
	rawVrel := int16(binary.BigEndian.Uint16(rec[2:4]))
	rawAz0 := int16(binary.BigEndian.Uint16(rec[4:6]))
	rawAz1 := int16(binary.BigEndian.Uint16(rec[6:8]))
	rawEl := int16(binary.BigEndian.Uint16(rec[8:10]))
	rawRCS0 := int16(binary.BigEndian.Uint16(rec[10:12]))
	rawRCS1 := int16(binary.BigEndian.Uint16(rec[12:14]))
	rawProb0 := rec[14]
	rawProb1 := rec[15]
	rawRangeVar := binary.BigEndian.Uint16(rec[16:18])
	rawVrelVar := binary.BigEndian.Uint16(rec[18:20])
	rawAzVar0 := binary.BigEndian.Uint16(rec[20:22])
	rawAzVar1 := binary.BigEndian.Uint16(rec[22:24])
	rawElVar := binary.BigEndian.Uint16(rec[24:26])
	rawPdh0 := rec[26]
	rawSNR := rec[27]

	return Detection{
		Range:                  float64(rawRange) / QUANT_16 * RANGE_FULL_SCALE_M,
		RelativeRadialVelocity: float64(rawVrel) / QUANT_16 * VELOCITY_FULL_SCALE_MPS,
		AzimuthalAngle0:        float64(rawAz0) / QUANT_16 * ANGLE_FULL_SCALE_RAD,
		AzimuthalAngle1:        float64(rawAz1) / QUANT_16 * ANGLE_FULL_SCALE_RAD,
		ElevationAngle:         float64(rawEl) / QUANT_16 * ANGLE_FULL_SCALE_RAD,
		RadarCrossSection0:     float64(rawRCS0) / QUANT_16 * RCS_FULL_SCALE_DBM2,
		RadarCrossSection1:     float64(rawRCS1) / QUANT_16 * RCS_FULL_SCALE_DBM2,
		ProbabilityAz0:         float64(rawProb0) / QUANT_PROB,
		ProbabilityAz1:         float64(rawProb1) / QUANT_PROB,
		RangeVariance:          float64(rawRangeVar) / QUANT_16 * VARIANCE_FULL_SCALE,
		RadialVelocityVariance: float64(rawVrelVar) / QUANT_16 * VARIANCE_FULL_SCALE,
		Az0Variance:            float64(rawAzVar0) / QUANT_16,
		Az1Variance:            float64(rawAzVar1) / QUANT_16,
		ElAngleVariance:        float64(rawElVar) / QUANT_16,
		// The false-detection byte is documented upstream as a bitstream of
		// flags. Until the flag schema is settled it is published on the
		// probability scale, with the raw byte preserved alongside.
		ProbabilityFalseDetection: float64(rawPdh0) / QUANT_PROB,
		Pdh0Raw:                   rawPdh0,
		SNR:                       (float64(rawSNR) + SNR_OFFSET_DBR) / SNR_LSB_DBR,
	}
}
