// Package ars430 decodes the binary UDP telemetry emitted by the Continental
// ARS430 automotive radar.
//
// The sensor emits two families of packet. STATUS packets carry device
// health and configuration and arrive on their own cadence. Event packets
// (FAR0/FAR1 for the long-range band, NEAR0/NEAR1/NEAR2 for the short-range
// band) carry the per-cycle detection lists. Every packet opens with a
// 16-byte header whose first four bytes identify the packet class.
//
// This package is pure computation over fixed-layout buffers: classify the
// header, decode the section after it, scale raw integer fields to physical
// units. Buffering of event packets into per-cycle batches lives in the
// batch subpackage; transport lives in the network subpackage.
package ars430

// HeaderType identifies one of the six ARS430 packet classes.
type HeaderType int

const (
	HeaderStatus HeaderType = iota
	HeaderFar0
	HeaderFar1
	HeaderNear0
	HeaderNear1
	HeaderNear2
)

// String returns the wire name of the packet class.
func (h HeaderType) String() string {
	switch h {
	case HeaderStatus:
		return "STATUS"
	case HeaderFar0:
		return "FAR0"
	case HeaderFar1:
		return "FAR1"
	case HeaderNear0:
		return "NEAR0"
	case HeaderNear1:
		return "NEAR1"
	case HeaderNear2:
		return "NEAR2"
	}
	return "UNKNOWN"
}

// IsStatus reports whether the packet class is the device status report.
func (h HeaderType) IsStatus() bool { return h == HeaderStatus }

// IsNear reports whether the packet class belongs to the short-range band.
func (h HeaderType) IsNear() bool {
	return h == HeaderNear0 || h == HeaderNear1 || h == HeaderNear2
}

// IsFar reports whether the packet class belongs to the long-range band.
func (h HeaderType) IsFar() bool {
	return h == HeaderFar0 || h == HeaderFar1
}

// Status is one decoded STATUS packet. Scaled fields carry physical units;
// everything else is reproduced as transmitted.
type Status struct {
	CRC                uint16
	Len                uint16
	SQC                uint8
	PartNumber         uint64
	AssemblyPartNumber uint64
	SWPartNumber       uint64
	SerialNumber       [SERIAL_NUMBER_LEN]byte // opaque, vendor-assigned
	BLVersion          uint32                  // assembled from 3 wire bytes
	BLCRC              uint32
	SWVersion          uint32 // assembled from 3 wire bytes
	SWCRC              uint32
	UTCTimestamp       uint64  // nsec
	Timestamp          uint32  // usec, sensor-local clock
	CurrentDamping     float64 // dB
	OpState            uint8
	CurrentFarCF       uint8
	CurrentNearCF      uint8
	Defective          uint8
	SupplyVoltLimit    uint8
	SensorOffTemp      uint8
	GmMissing          uint8
	TxOutReduced       uint8
	MaximumRangeFar    float64 // m
	MaximumRangeNear   float64 // m
}

// Event is one decoded FAR/NEAR packet.
type Event struct {
	CRC                uint16
	Len                uint16
	SQC                uint8
	MessageCounter     uint8
	UtcTimeStamp       uint64 // nsec
	Timestamp          uint32 // usec, sensor-local clock; the batching key
	MeasureCounter     uint32
	CycleCounter       uint32
	NofDetections      uint16  // detections in the whole measurement cycle
	Vambig             float64 // m/s, ambiguous-velocity bound
	CenterFreq         uint8   // GHz
	DetectionsInPacket uint8   // detections declared for this packet
	EventType          HeaderType
	Detections         []Detection // wire order, len <= DetectionsInPacket
}

// Detection is one radar return inside an Event.
type Detection struct {
	Range                     float64 // m
	RelativeRadialVelocity    float64 // m/s
	AzimuthalAngle0           float64 // rad
	AzimuthalAngle1           float64 // rad
	ElevationAngle            float64 // rad
	RadarCrossSection0        float64 // dBm^2
	RadarCrossSection1        float64 // dBm^2
	ProbabilityAz0            float64 // 0..1
	ProbabilityAz1            float64 // 0..1
	RangeVariance             float64 // m^2
	RadialVelocityVariance    float64 // (m/s)^2
	Az0Variance               float64 // rad^2
	Az1Variance               float64 // rad^2
	ElAngleVariance           float64 // rad^2
	ProbabilityFalseDetection float64 // 0..1; upstream documents the byte as a flag bitstream, not yet decomposed
	Pdh0Raw                   uint8   // raw false-detection byte, kept for a future flag decomposition
	SNR                       float64 // dBr
}
