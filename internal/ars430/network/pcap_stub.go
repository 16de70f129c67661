//go:build !pcap
// +build !pcap

package network

import (
	"context"
	"fmt"
)

// ReplayPCAPFile is a stub used when the binary is built without PCAP support.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, handler PacketHandler) error {
	return fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap to enable PCAP file replay")
}
