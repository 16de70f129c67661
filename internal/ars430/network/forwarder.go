package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/ars430.report/internal/monitoring"
)

// PacketForwarder mirrors raw sensor payloads to a secondary address without
// blocking the decode path. Useful for feeding a capture box or a second
// decoder instance from a live sensor.
type PacketForwarder struct {
	conn        *net.UDPConn
	channel     chan []byte
	logInterval time.Duration
	address     string
}

// NewPacketForwarder creates a forwarder that sends packets to addr.
func NewPacketForwarder(addr string, logInterval time.Duration) (*PacketForwarder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}

	if logInterval == 0 {
		logInterval = time.Minute
	}

	return &PacketForwarder{
		conn:        conn,
		channel:     make(chan []byte, 1000),
		logInterval: logInterval,
		address:     addr,
	}, nil
}

// Start begins the forwarding goroutine. Write failures are batched into a
// periodic log line rather than reported per packet.
func (f *PacketForwarder) Start(ctx context.Context) {
	go func() {
		droppedCount := 0
		var lastError error
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case packet := <-f.channel:
				if _, err := f.conn.Write(packet); err != nil {
					droppedCount++
					lastError = err
				}
			case <-ticker.C:
				if droppedCount > 0 && lastError != nil {
					monitoring.Logf("dropped %d forwarded packets (latest error: %v)", droppedCount, lastError)
					droppedCount = 0
					lastError = nil
				}
			}
		}
	}()

	monitoring.Logf("forwarding raw packets to %s", f.address)
}

// ForwardAsync queues a packet for forwarding without blocking. The caller
// retains ownership of pkt; a full queue drops the packet.
func (f *PacketForwarder) ForwardAsync(pkt []byte) {
	packetCopy := make([]byte, len(pkt))
	copy(packetCopy, pkt)

	select {
	case f.channel <- packetCopy:
	default:
	}
}

// Close closes the forwarding connection.
func (f *PacketForwarder) Close() error {
	return f.conn.Close()
}
