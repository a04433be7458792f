package frames

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/plank.report/internal/monitoring"
)

// ReadPCAP replays a pcap capture of the UDP frame stream, handing every
// decodable payload sent to udpPort to h. Undecodable payloads are counted
// as dropped. A udpPort of zero accepts every UDP packet.
func ReadPCAP(ctx context.Context, r io.Reader, udpPort int, h Handler) (Stats, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open pcap stream: %w", err)
	}

	var c counters
	source := gopacket.NewPacketSource(pr, pr.LinkType())
	source.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	for {
		select {
		case <-ctx.Done():
			return c.snapshot(), ctx.Err()
		default:
		}

		packet, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			stats := c.snapshot()
			monitoring.Logf("pcap replay complete: %d packets, %d frames, %d dropped", stats.Packets, stats.Frames, stats.Dropped)
			return stats, nil
		}
		if err != nil {
			return c.snapshot(), fmt.Errorf("failed to read pcap packet: %w", err)
		}

		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}
		if err := c.handle(udp.Payload, h); err != nil {
			monitoring.Logf("Dropping pcap frame at %v: %v", packet.Metadata().Timestamp, err)
		}
	}
}
