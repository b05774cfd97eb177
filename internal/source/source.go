// Package source wraps gopacket/pcap device access: opening a live
// interface (or replaying a capture file) and handing off raw link-layer
// frames for decoding. It splits live and file-backed capture the way
// pcap wrappers typically do, but strips gopacket's own packet-channel
// plumbing down to the raw bytes the decode package wants.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
)

const (
	// The same default as tcpdump.
	defaultSnapLen = 262144

	openRetryAttempts = 3
	openRetryDelay    = 250 * time.Millisecond
)

// ErrDeviceUnavailable means the requested interface could not be opened
// after retrying.
var ErrDeviceUnavailable = errors.New("source: capture device unavailable")

// ErrFilterRejected means the handle opened but the kernel rejected the
// compiled BPF program.
var ErrFilterRejected = errors.New("source: BPF filter rejected")

// RawFrame is one link-layer frame as read off the wire, tagged with the
// link type needed to hand it to the right decoder.
type RawFrame struct {
	Timestamp time.Time
	LinkType  layers.LinkType
	Data      []byte
}

// Source produces a stream of RawFrames from either a live interface or a
// capture file until Close is called or the underlying handle runs dry.
type Source struct {
	handle *pcap.Handle
}

// OpenLive opens interfaceName in immediate mode and installs bpfFilter
// (e.g. "tcp port 80"). Device-open failures are retried a bounded number
// of times before giving up with ErrDeviceUnavailable, since a device can
// be transiently busy immediately after process start.
func OpenLive(ctx context.Context, interfaceName, bpfFilter string) (*Source, error) {
	var handle *pcap.Handle
	err := retry.Do(
		func() error {
			h, openErr := pcap.OpenLive(interfaceName, defaultSnapLen, true, pcap.BlockForever)
			if openErr != nil {
				return openErr
			}
			handle = h
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(openRetryAttempts),
		retry.Delay(openRetryDelay),
	)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "open %s: %s", interfaceName, err)
	}

	if bpfFilter != "" {
		if err := handle.SetBPFFilter(bpfFilter); err != nil {
			handle.Close()
			return nil, errors.Wrapf(ErrFilterRejected, "filter %q: %s", bpfFilter, err)
		}
	}

	return &Source{handle: handle}, nil
}

// OpenFile replays a previously captured .pcap/.pcapng file, used for the
// one-shot diagnostic path.
func OpenFile(path string) (*Source, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "open %s: %s", path, err)
	}
	return &Source{handle: handle}, nil
}

// Frames returns a channel of decoded-ready frames. The channel closes
// when ctx is canceled or the handle is exhausted (file replay reaching
// EOF). The returned channel has a small buffer: a slow coordinator
// applies backpressure to capture rather than growing memory without
// bound.
func (s *Source) Frames(ctx context.Context) <-chan RawFrame {
	out := make(chan RawFrame, 5)
	linkType := s.handle.LinkType()
	packetSource := gopacket.NewPacketSource(s.handle, linkType)
	packetSource.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case pkt, ok := <-packetSource.Packets():
				if !ok {
					return
				}
				data := pkt.Data()
				if data == nil {
					continue
				}
				frame := RawFrame{
					Timestamp: pkt.Metadata().Timestamp,
					LinkType:  linkType,
					Data:      data,
				}
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// IsLoopback reports whether frames from this source should be decoded
// with decode.Loopback rather than decode.Ethernet.
func (s *Source) IsLoopback() bool {
	return s.handle.LinkType() == layers.LinkTypeNull || s.handle.LinkType() == layers.LinkTypeLoop
}

// Close releases the underlying pcap handle.
func (s *Source) Close() {
	s.handle.Close()
}

// Devices lists capturable interfaces, for the interactive device chooser.
func Devices() ([]pcap.Interface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate capture devices")
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("source: no capture devices found")
	}
	return devs, nil
}
