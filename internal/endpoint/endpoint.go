// Package endpoint defines the wire-level identity of one half of a TCP
// conversation and the bookkeeping needed to tell the two halves apart once
// capture begins mid-connection.
package endpoint

import (
	"fmt"
	"net"
)

// Endpoint is an {IP address, port} pair. Two endpoints compare by value:
// same IP bytes, same port.
type Endpoint struct {
	IP   net.IP
	Port uint16
}

// New returns the Endpoint for ip/port. Port 0 is never valid for an
// endpoint considered by the flow table; callers that observe port 0
// should drop the packet before reaching here.
func New(ip net.IP, port uint16) Endpoint {
	return Endpoint{IP: ip, Port: port}
}

// Equal reports whether e and other name the same IP and port.
func (e Endpoint) Equal(other Endpoint) bool {
	return e.Port == other.Port && e.IP.Equal(other.IP)
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// Side identifies which of a flow's two fixed labels a packet travels from,
// relative to that flow's established Source/Destination labeling.
type Side int

const (
	// FromSource marks a packet traveling from the flow's Source endpoint.
	FromSource Side = iota
	// FromDestination marks a packet traveling from the flow's Destination endpoint.
	FromDestination
)

func (s Side) String() string {
	if s == FromSource {
		return "source"
	}
	return "destination"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == FromSource {
		return FromDestination
	}
	return FromSource
}

// Pair is an unordered fingerprint for a conversation: two endpoints that
// compare equal regardless of which was observed first. It is NOT itself
// the Source/Destination labeling — that's assigned once, by the flow
// table, to whichever packet created the flow.
type Pair struct {
	A, B Endpoint
}

// NewPair builds the fingerprint for a packet observed from a to b.
func NewPair(a, b Endpoint) Pair {
	return Pair{A: a, B: b}
}

// Matches reports whether this pair, considered as {source, destination} at
// flow-creation time, matches the wire-observed (src, dst) pair, and if so
// from which side the new packet was sent.
func (p Pair) Matches(src, dst Endpoint) (Side, bool) {
	if p.A.Equal(src) && p.B.Equal(dst) {
		return FromSource, true
	}
	if p.A.Equal(dst) && p.B.Equal(src) {
		return FromDestination, true
	}
	return 0, false
}
