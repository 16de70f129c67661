// Command gen-capture emits synthetic ARS430 telemetry over UDP for testing
// the decoder without a sensor on the bench. It sends a status frame at
// startup and then cycles of NEAR and FAR event packets with plausible
// detection fields.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"math/rand"
	"net"
	"time"

	"github.com/banshee-data/ars430.report/internal/ars430"
)

var (
	target     = flag.String("target", "127.0.0.1:31122", "decoder address to send packets to")
	cycles     = flag.Int("n", 100, "number of measurement cycles to send")
	cycleRate  = flag.Int("rate", 14, "measurement cycles per second")
	detections = flag.Int("detections", 12, "detections per event packet")
	statusRate = flag.Int("status-every", 20, "send a status frame every N cycles")
)

func main() {
	flag.Parse()

	conn, err := net.Dial("udp", *target)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *target, err)
	}
	defer conn.Close()

	interval := time.Second / time.Duration(*cycleRate)
	timestamp := uint32(rand.Intn(1 << 20))
	sent := 0

	log.Printf("sending %d cycles to %s at %d Hz", *cycles, *target, *cycleRate)

	for cycle := 0; cycle < *cycles; cycle++ {
		if cycle%*statusRate == 0 {
			if _, err := conn.Write(statusPacket(timestamp)); err != nil {
				log.Fatalf("write failed: %v", err)
			}
			sent++
		}

		// One sensor cycle: each packet class once, all sharing the cycle's
		// timestamp so the decoder batches them together.
		for _, magic := range []uint32{
			ars430.MAGIC_NEAR0, ars430.MAGIC_NEAR1, ars430.MAGIC_NEAR2,
			ars430.MAGIC_FAR0, ars430.MAGIC_FAR1,
		} {
			if _, err := conn.Write(eventPacket(magic, timestamp, uint32(cycle), *detections)); err != nil {
				log.Fatalf("write failed: %v", err)
			}
			sent++
		}

		timestamp += uint32(interval / time.Microsecond)
		time.Sleep(interval)
		if (cycle+1)%50 == 0 {
			log.Printf("%d/%d cycles", cycle+1, *cycles)
		}
	}

	log.Printf("✓ Sent %d packets", sent)
}

// statusPacket builds a STATUS wire packet with fixed identity fields.
func statusPacket(timestamp uint32) []byte {
	buf := make([]byte, ars430.HEADER_LEN+ars430.STATUS_FRAME_LEN)
	binary.BigEndian.PutUint32(buf[0:4], ars430.MAGIC_STATUS)

	payload := buf[ars430.HEADER_LEN:]
	binary.BigEndian.PutUint64(payload[5:13], 0x4152533433302020)  // part number
	binary.BigEndian.PutUint64(payload[13:21], 0x4153534559202020) // assembly part number
	binary.BigEndian.PutUint64(payload[21:29], 0x5357202020202020) // software part number
	copy(payload[ars430.SERIAL_NUMBER_START:], []byte("GEN-CAPTURE-SYNTHETIC-0001"))

	tail := payload[ars430.SERIAL_NUMBER_START+ars430.SERIAL_NUMBER_LEN:]
	tail[0], tail[1], tail[2] = 1, 2, 3 // BL version
	tail[7], tail[8], tail[9] = 4, 5, 6 // SW version
	binary.BigEndian.PutUint64(tail[14:22], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint32(tail[22:26], timestamp)
	binary.BigEndian.PutUint32(tail[26:30], 2_147_483_647) // near-zero damping
	binary.BigEndian.PutUint16(tail[38:40], 2500)          // 250 m far range
	binary.BigEndian.PutUint16(tail[40:42], 700)           // 70 m near range
	return buf
}

// eventPacket builds one FAR/NEAR wire packet with n synthetic detections.
func eventPacket(magic, timestamp, cycle uint32, n int) []byte {
	buf := make([]byte, ars430.HEADER_LEN+ars430.EVENT_HEADER_LEN+n*ars430.DETECTION_RECORD_LEN)
	binary.BigEndian.PutUint32(buf[0:4], magic)

	payload := buf[ars430.HEADER_LEN:]
	binary.BigEndian.PutUint64(payload[6:14], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint32(payload[14:18], timestamp)
	binary.BigEndian.PutUint32(payload[18:22], cycle)
	binary.BigEndian.PutUint32(payload[22:26], cycle)
	binary.BigEndian.PutUint16(payload[26:28], uint16(n))
	// vambig ~ 100 m/s
	binary.BigEndian.PutUint16(payload[28:30], uint16(32767))
	payload[30] = 77 // center frequency GHz
	payload[31] = uint8(n)

	for i := 0; i < n; i++ {
		rec := payload[ars430.EVENT_HEADER_LEN+i*ars430.DETECTION_RECORD_LEN:]
		// Scatter targets between 5 m and 150 m with small radial speeds.
		rangeRaw := uint16((5 + rand.Float64()*145) / 300.0 * 65534)
		speedRaw := int16(rand.Float64() * 0.05 * 65534) // up to ~15 m/s
		azRaw := int16((rand.Float64() - 0.5) * 0.1 * 65534)

		binary.BigEndian.PutUint16(rec[0:2], rangeRaw)
		binary.BigEndian.PutUint16(rec[2:4], uint16(speedRaw))
		binary.BigEndian.PutUint16(rec[4:6], uint16(azRaw))
		binary.BigEndian.PutUint16(rec[10:12], uint16(int16(200))) // RCS0
		rec[27] = uint8(90 + rand.Intn(100))                       // SNR raw, decodes to 20-29 dBr
	}
	return buf
}
