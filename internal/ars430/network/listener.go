// Package network carries raw ARS430 payloads between the wire and the
// decode pipeline: a UDP listener with a source-address gate on the way in,
// an asynchronous raw-packet forwarder on the way out, and a PCAP replay
// path for captures.
package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/ars430.report/internal/monitoring"
)

// PacketHandler consumes one raw payload. The listener invokes it only for
// packets whose source passed the address gate.
type PacketHandler interface {
	HandlePacket(payload []byte) error
}

// StatsLogger is the periodic stats hook; the pipeline's Stats satisfies it.
type StatsLogger interface {
	LogStats()
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string // local listen address, e.g. ":31122"
	SensorIP    string // expected sensor source IP; empty accepts any source
	RcvBuf      int    // socket receive buffer size in bytes
	LogInterval time.Duration
	Handler     PacketHandler
	Stats       StatsLogger
	Forwarder   *PacketForwarder
}

// UDPListener receives radar packets over UDP and feeds them to the decode
// pipeline. Packets from unexpected sources are counted and dropped before
// any decoding happens.
type UDPListener struct {
	address     string
	sensorIP    string
	rcvBuf      int
	logInterval time.Duration
	handler     PacketHandler
	stats       StatsLogger
	forwarder   *PacketForwarder
	conn        *net.UDPConn
}

// NewUDPListener creates a UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &UDPListener{
		address:     config.Address,
		sensorIP:    config.SensorIP,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		handler:     config.Handler,
		stats:       config.Stats,
		forwarder:   config.Forwarder,
	}
}

// Start begins listening for UDP packets and processing them until the
// context is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("warning: failed to set UDP receive buffer to %d: %v", l.rcvBuf, err)
		}
	}

	monitoring.Logf("UDP listener started on %s (sensor filter: %s)", conn.LocalAddr(), l.filterDesc())

	if l.forwarder != nil {
		l.forwarder.Start(ctx)
	}
	if l.stats != nil {
		go l.statsLoop(ctx)
	}

	// The largest event packet comfortably fits; leave margin for firmware
	// variants.
	buffer := make([]byte, 2048)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping")
			return ctx.Err()
		default:
			// Short read deadline so context cancellation is noticed.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, src, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			l.handlePacket(buffer[:n], src)
		}
	}
}

// handlePacket applies the source gate and hands the payload onward. The
// payload is copied before leaving this function because the read buffer is
// reused.
func (l *UDPListener) handlePacket(payload []byte, src *net.UDPAddr) {
	if l.sensorIP != "" && (src == nil || src.IP.String() != l.sensorIP) {
		monitoring.PacketsFiltered.Inc()
		return
	}

	packet := make([]byte, len(payload))
	copy(packet, payload)

	if l.forwarder != nil {
		l.forwarder.ForwardAsync(packet)
	}

	if l.handler != nil {
		if err := l.handler.HandlePacket(packet); err != nil {
			// Decode failures are per-packet; keep reading the socket.
			monitoring.Logf("packet from %v not decoded: %v", src, err)
		}
	}
}

// statsLoop logs pipeline stats shortly after startup and then on the
// configured interval.
func (l *UDPListener) statsLoop(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

// Close closes the UDP socket if the listener is running.
func (l *UDPListener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

func (l *UDPListener) filterDesc() string {
	if l.sensorIP == "" {
		return "any"
	}
	return l.sensorIP
}
