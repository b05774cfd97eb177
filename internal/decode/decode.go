// Package decode turns raw link-layer frames into FilteredPackets: the
// wire source/destination/payload/FIN tuple the flow table consumes. It
// understands two link-layer dialects: Ethernet-framed capture, and the
// BSD loopback pseudo-header used by `lo0` on macOS/BSD.
package decode

import (
	"encoding/binary"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"

	"github.com/mccutchen/httpwatch/internal/endpoint"
)

// Loopback address-family tags recognized on BSD-style loopback capture.
const (
	loopbackFamilyIPv4 uint32 = 0x00000002
	loopbackFamilyIPv6 uint32 = 0x0000001E

	loopbackHeaderLen = 4
	ipv4HeaderLen     = 20
)

// ErrUnrecognizedFrame is returned for a packet that the decoder cannot
// make sense of. This is not fatal: the caller drops the packet and
// continues.
var ErrUnrecognizedFrame = errors.New("frame decode: unrecognized or malformed frame")

// FilteredPacket is the decoder's output: the wire source/destination of a
// single packet (not yet interpreted against any flow's labeling), its
// TCP payload, and whether FIN was set.
type FilteredPacket struct {
	Timestamp   time.Time
	Source      endpoint.Endpoint
	Destination endpoint.Endpoint
	Payload     []byte
	FIN         bool
}

// Ethernet decodes a standard Ethernet -> IPv4/IPv6 -> TCP frame. Any
// missing or malformed layer yields ErrUnrecognizedFrame; the caller is
// expected to drop the packet.
func Ethernet(data []byte, ts time.Time) (FilteredPacket, error) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	return fromGopacket(pkt, ts)
}

// Loopback decodes a BSD loopback frame: a 4-byte little-endian address
// family tag followed by the IP header. Unknown tags are reported as
// ErrUnrecognizedFrame.
func Loopback(data []byte, ts time.Time) (FilteredPacket, error) {
	if len(data) < loopbackHeaderLen {
		return FilteredPacket{}, ErrUnrecognizedFrame
	}

	family := binary.LittleEndian.Uint32(data[:loopbackHeaderLen])

	var linkType gopacket.LayerType
	switch family {
	case loopbackFamilyIPv4:
		linkType = layers.LayerTypeIPv4
	case loopbackFamilyIPv6:
		linkType = layers.LayerTypeIPv6
	default:
		return FilteredPacket{}, errors.Wrapf(ErrUnrecognizedFrame, "unknown loopback address family %#x", family)
	}

	pkt := gopacket.NewPacket(data[loopbackHeaderLen:], linkType, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	return fromGopacket(pkt, ts)
}

func fromGopacket(pkt gopacket.Packet, ts time.Time) (FilteredPacket, error) {
	if err := pkt.ErrorLayer(); err != nil {
		return FilteredPacket{}, errors.Wrap(ErrUnrecognizedFrame, err.Error())
	}

	netLayer := pkt.NetworkLayer()
	if netLayer == nil {
		return FilteredPacket{}, ErrUnrecognizedFrame
	}

	var srcIP, dstIP []byte
	switch l := netLayer.(type) {
	case *layers.IPv4:
		srcIP, dstIP = l.SrcIP, l.DstIP
	case *layers.IPv6:
		srcIP, dstIP = l.SrcIP, l.DstIP
	default:
		return FilteredPacket{}, ErrUnrecognizedFrame
	}

	tcpLayer, ok := pkt.TransportLayer().(*layers.TCP)
	if !ok || tcpLayer == nil {
		return FilteredPacket{}, ErrUnrecognizedFrame
	}

	if tcpLayer.SrcPort == 0 || tcpLayer.DstPort == 0 {
		return FilteredPacket{}, ErrUnrecognizedFrame
	}

	return FilteredPacket{
		Timestamp:   ts,
		Source:      endpoint.New(append([]byte(nil), srcIP...), uint16(tcpLayer.SrcPort)),
		Destination: endpoint.New(append([]byte(nil), dstIP...), uint16(tcpLayer.DstPort)),
		Payload:     tcpLayer.LayerPayload(),
		FIN:         tcpLayer.FIN,
	}, nil
}
