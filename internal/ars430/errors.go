package ars430

import "errors"

// Decode failures are terminal for the packet that produced them, never for
// the process. Callers skip the packet and keep reading the socket.
var (
	// ErrMalformedHeader reports a buffer too short to hold the 16-byte
	// packet header.
	ErrMalformedHeader = errors.New("ars430: malformed packet header")

	// ErrUnknownHeader reports a well-formed header whose magic matches none
	// of the six known packet classes.
	ErrUnknownHeader = errors.New("ars430: unrecognised header magic")

	// ErrTruncatedPacket reports a packet section shorter than its fixed
	// layout requires.
	ErrTruncatedPacket = errors.New("ars430: truncated packet")
)
