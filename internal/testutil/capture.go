package testutil

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// UDPCapture returns an Ethernet/IPv4/UDP pcap with one packet per payload,
// all addressed to port and spaced 33ms apart.
func UDPCapture(t testing.TB, port int, payloads ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	AssertNoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for i, payload := range payloads {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(10, 0, 0, 5),
			DstIP:    net.IPv4(10, 0, 0, 1),
		}
		udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(port)}
		AssertNoError(t, udp.SetNetworkLayerForChecksum(ip))

		sb := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		AssertNoError(t, gopacket.SerializeLayers(sb, opts, eth, ip, udp, gopacket.Payload(payload)))

		data := sb.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     testTime.Add(time.Duration(i) * 33 * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		AssertNoError(t, w.WritePacket(ci, data))
	}
	return buf.Bytes()
}
