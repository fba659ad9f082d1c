package natnettest

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// DecodeUDPPayload parses a raw Ethernet+IPv4+UDP frame and returns the UDP
// payload, the way pshark decodes a captured PTP datagram before handing
// the body to a protocol-specific parser. Tests use this to assert on
// bytes captured straight off a loopback socket via a packet source,
// instead of re-deriving the UDP header fields by hand.
func DecodeUDPPayload(frame []byte) ([]byte, error) {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, fmt.Errorf("natnettest: no UDP layer in frame")
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil, fmt.Errorf("natnettest: unexpected UDP layer type %T", udpLayer)
	}
	return udp.Payload, nil
}

// DumpPacket renders a packet's layers for failure output, matching the
// spew.Dump calls pshark and ziffy use when a captured packet doesn't match
// what a test expected.
func DumpPacket(frame []byte) string {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	return spew.Sdump(pkt)
}
