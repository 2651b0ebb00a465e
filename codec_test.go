package placeholder

import (
	"net/netip"
	"testing"

	"github.com/quic-go/quic-go/quicvarint"
	"github.com/stretchr/testify/require"
)

func mustPacket(t *testing.T, raw []byte) *Packet {
	t.Helper()
	buf := make([]byte, maxPacketSize)
	copy(buf, raw)
	return &Packet{buf: buf, n: len(raw)}
}

func ipv4Header(src, dst [4]byte, ttl byte) []byte {
	h := make([]byte, 20)
	h[0] = 0x45
	h[8] = ttl
	copy(h[12:16], src[:])
	copy(h[16:20], dst[:])
	return h
}

func TestEncodeDecodePackageShareRoundTrip(t *testing.T) {
	raw := ipv4Header([4]byte{10, 0, 1, 1}, [4]byte{10, 0, 2, 42}, 64)
	pkt := mustPacket(t, raw)

	encoded := EncodePackageShare(pkt, 17)
	source := netip.MustParseAddrPort("192.0.2.1:7654")
	decoded := Decode(source, encoded)

	share, ok := decoded.(PackageShareRead)
	require.True(t, ok)
	require.Equal(t, uint32(17), share.TTL)
	require.Equal(t, raw, share.Packet.Bytes())
}

func TestEncodeDecodeNodeRoundTrip(t *testing.T) {
	node := NodeAnnouncement{
		Name:     "alice",
		Subnet:   netip.MustParsePrefix("10.0.1.0/24"),
		RealAddr: netip.MustParseAddr("203.0.113.5"),
		Port:     7654,
		Jump:     1,
	}

	encoded := EncodeNode(payloadTypeAddNode, node)
	source := netip.MustParseAddrPort("203.0.113.5:7654")
	decoded := Decode(source, encoded)

	read, ok := decoded.(AddNodeRead)
	require.True(t, ok)
	require.Equal(t, source, read.Source)
	require.Equal(t, node, read.Node)
}

func TestEncodeDecodeNodeWithoutRealAddr(t *testing.T) {
	node := NodeAnnouncement{
		Name:   "bob",
		Subnet: netip.MustParsePrefix("10.0.2.0/24"),
		Port:   7654,
		Jump:   bootstrapJump,
	}

	source := netip.MustParseAddrPort("198.51.100.9:7654")
	decoded := Decode(source, EncodeNode(payloadTypeAddNode, node))

	read, ok := decoded.(AddNodeRead)
	require.True(t, ok)
	require.False(t, read.Node.RealAddr.IsValid())
	require.Equal(t, int32(bootstrapJump), read.Node.Jump)
}

func TestEncodeDecodePingRoundTrip(t *testing.T) {
	source := netip.MustParseAddrPort("198.51.100.9:7654")
	decoded := Decode(source, EncodePing("carol"))

	read, ok := decoded.(PingPongRead)
	require.True(t, ok)
	require.Equal(t, "carol", read.Name)
	require.Equal(t, source, read.Source)
}

func TestDecodeUnknownTagIsSkipped(t *testing.T) {
	data := appendRecord(nil, payloadType(99), []byte{1, 2, 3})
	source := netip.MustParseAddrPort("198.51.100.9:7654")

	decoded := Decode(source, data)
	require.Equal(t, Nop{}, decoded)
}

func TestDecodeTruncatedIsNop(t *testing.T) {
	data := appendRecord(nil, payloadTypePing, []byte{1, 2, 3})
	data = data[:len(data)-1]
	source := netip.MustParseAddrPort("198.51.100.9:7654")

	decoded := Decode(source, data)
	require.Equal(t, Nop{}, decoded)
}

func TestDecodeMalformedPackageIsNop(t *testing.T) {
	// A package body claiming a 5-byte packet but carrying none.
	malformedBody := quicvarint.Append(nil, 5)
	data := appendRecord(nil, payloadTypePackage, malformedBody)
	source := netip.MustParseAddrPort("198.51.100.9:7654")

	decoded := Decode(source, data)
	require.Equal(t, Nop{}, decoded)
}
