package placeholder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net/netip"

	"github.com/quic-go/quic-go/quicvarint"
)

// Wire format: each datagram is one tagged record.
//
//	varint payloadType
//	varint length
//	length bytes of type-specific body
//
// Each datagram carries exactly one record directly over a UDP
// socket, rather than multiplexed capsules over a stream. Unknown
// tags are skipped, never rejected, so a newer node's extra payload
// types never break an older one.
type payloadType uint64

const (
	payloadTypePackage payloadType = 1
	payloadTypeAddNode payloadType = 2
	payloadTypeDelNode payloadType = 3
	payloadTypePing    payloadType = 4
)

// EncodePackageShare encodes a PackageShareWrite body: the packet bytes
// and the remaining TTL.
func EncodePackageShare(pkt *Packet, ttl uint32) []byte {
	var body []byte
	body = quicvarint.Append(body, uint64(len(pkt.Bytes())))
	body = append(body, pkt.Bytes()...)
	body = quicvarint.Append(body, uint64(ttl))
	return appendRecord(nil, payloadTypePackage, body)
}

// EncodeNode encodes an AddNode/DelNode body: name, subnet, real
// address (optional), port, and jump count.
func EncodeNode(tag payloadType, n NodeAnnouncement) []byte {
	var body []byte
	body = quicvarint.Append(body, uint64(len(n.Name)))
	body = append(body, n.Name...)

	subnetBytes := n.Subnet.Addr().AsSlice()
	body = quicvarint.Append(body, uint64(len(subnetBytes)))
	body = append(body, subnetBytes...)
	body = quicvarint.Append(body, uint64(n.Subnet.Bits()))

	var realIPBytes []byte
	if n.RealAddr.IsValid() {
		realIPBytes = n.RealAddr.AsSlice()
	}
	body = quicvarint.Append(body, uint64(len(realIPBytes)))
	body = append(body, realIPBytes...)

	var portBuf [2]byte
	binary.BigEndian.PutUint16(portBuf[:], n.Port)
	body = append(body, portBuf[:]...)

	var jumpBuf [4]byte
	binary.BigEndian.PutUint32(jumpBuf[:], uint32(n.Jump))
	body = append(body, jumpBuf[:]...)

	return appendRecord(nil, tag, body)
}

// EncodePing encodes a PingPong body: the sender's name.
func EncodePing(name string) []byte {
	var body []byte
	body = quicvarint.Append(body, uint64(len(name)))
	body = append(body, name...)
	return appendRecord(nil, payloadTypePing, body)
}

func appendRecord(dst []byte, tag payloadType, body []byte) []byte {
	dst = quicvarint.Append(dst, uint64(tag))
	dst = quicvarint.Append(dst, uint64(len(body)))
	return append(dst, body...)
}

// readVarintPrefixed reads a varint length L followed by L bytes from
// the front of data, returning the L bytes and the remainder.
func readVarintPrefixed(data []byte) (field, rest []byte, err error) {
	length, n, err := quicvarint.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	data = data[n:]
	if uint64(len(data)) < length {
		return nil, nil, errors.New("truncated field")
	}
	return data[:length], data[length:], nil
}

// Decode parses a UDP datagram into the read-direction Message it
// represents. Decode errors never propagate: a malformed or truncated
// datagram yields Nop, with a warning logged here, rather than
// tearing down the dispatch loop over a single bad peer.
func Decode(source netip.AddrPort, data []byte) Message {
	tag, n, err := quicvarint.Parse(data)
	if err != nil {
		log.Printf("placeholder: malformed datagram from %s: %v", source, err)
		return Nop{}
	}
	data = data[n:]
	length, n, err := quicvarint.Parse(data)
	if err != nil {
		log.Printf("placeholder: malformed datagram from %s: %v", source, err)
		return Nop{}
	}
	data = data[n:]
	if uint64(len(data)) < length {
		log.Printf("placeholder: truncated datagram from %s", source)
		return Nop{}
	}
	body := data[:length]

	switch payloadType(tag) {
	case payloadTypePackage:
		pkt, ttl, err := decodePackageShare(body)
		if err != nil {
			log.Printf("placeholder: bad package payload from %s: %v", source, err)
			return Nop{}
		}
		return PackageShareRead{Packet: pkt, TTL: ttl}
	case payloadTypeAddNode:
		node, err := decodeNode(body)
		if err != nil {
			log.Printf("placeholder: bad add-node payload from %s: %v", source, err)
			return Nop{}
		}
		return AddNodeRead{Source: source, Node: node}
	case payloadTypeDelNode:
		node, err := decodeNode(body)
		if err != nil {
			log.Printf("placeholder: bad del-node payload from %s: %v", source, err)
			return Nop{}
		}
		return DelNodeRead{Source: source, Node: node}
	case payloadTypePing:
		name, err := decodePing(body)
		if err != nil {
			log.Printf("placeholder: bad ping payload from %s: %v", source, err)
			return Nop{}
		}
		return PingPongRead{Source: source, Name: name}
	default:
		// Unknown tag: skip rather than reject.
		log.Printf("placeholder: skipping unknown payload tag %d from %s", tag, source)
		return Nop{}
	}
}

func decodePackageShare(body []byte) (*Packet, uint32, error) {
	raw, rest, err := readVarintPrefixed(body)
	if err != nil {
		return nil, 0, err
	}
	ttl, _, err := quicvarint.Parse(rest)
	if err != nil {
		return nil, 0, err
	}
	if !validPacket(raw) {
		return nil, 0, errors.New("embedded packet has invalid IP header")
	}
	return &Packet{buf: padToCapacity(raw), n: len(raw)}, uint32(ttl), nil
}

func decodeNode(body []byte) (NodeAnnouncement, error) {
	nameBuf, rest, err := readVarintPrefixed(body)
	if err != nil {
		return NodeAnnouncement{}, err
	}

	subnetBuf, rest, err := readVarintPrefixed(rest)
	if err != nil {
		return NodeAnnouncement{}, err
	}
	subnetAddr, err := addrFromBytes(subnetBuf)
	if err != nil {
		return NodeAnnouncement{}, err
	}

	maskBits, n, err := quicvarint.Parse(rest)
	if err != nil {
		return NodeAnnouncement{}, err
	}
	rest = rest[n:]

	realIPBuf, rest, err := readVarintPrefixed(rest)
	if err != nil {
		return NodeAnnouncement{}, err
	}
	var realAddr netip.Addr
	if len(realIPBuf) > 0 {
		realAddr, err = addrFromBytes(realIPBuf)
		if err != nil {
			return NodeAnnouncement{}, err
		}
	}

	if len(rest) < 6 {
		return NodeAnnouncement{}, errors.New("truncated node record")
	}
	port := binary.BigEndian.Uint16(rest[0:2])
	jump := int32(binary.BigEndian.Uint32(rest[2:6]))

	prefix, err := subnetAddr.Prefix(int(maskBits))
	if err != nil {
		return NodeAnnouncement{}, err
	}

	return NodeAnnouncement{
		Name:     string(nameBuf),
		Subnet:   prefix,
		RealAddr: realAddr,
		Port:     port,
		Jump:     jump,
	}, nil
}

func decodePing(body []byte) (string, error) {
	nameBuf, _, err := readVarintPrefixed(body)
	if err != nil {
		return "", err
	}
	return string(nameBuf), nil
}

func addrFromBytes(b []byte) (netip.Addr, error) {
	switch len(b) {
	case 4:
		return netip.AddrFrom4([4]byte(b)), nil
	case 16:
		return netip.AddrFrom16([16]byte(b)), nil
	default:
		return netip.Addr{}, fmt.Errorf("invalid address length: %d", len(b))
	}
}

// padToCapacity copies raw into a maxPacketSize-capacity slice so the
// resulting Packet can be returned to the bufferPool like any other.
func padToCapacity(raw []byte) []byte {
	buf := make([]byte, maxPacketSize)
	copy(buf, raw)
	return buf
}
