package placeholder

import (
	"fmt"
	"net/netip"
	"sync"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// maxPacketSize is the largest IP datagram the overlay will carry. It
// matches the MTU the TUN interface is configured with.
const maxPacketSize = 1500

// bufferPoolRefill is how many buffers are allocated at once when the
// pool runs dry.
const bufferPoolRefill = 5

// Packet is an owned, pooled byte buffer holding a single IP datagram.
// Its zero value is not usable; obtain one from a bufferPool.
type Packet struct {
	buf []byte // capacity is always maxPacketSize
	n   int    // number of valid bytes in buf
}

// Version returns the IP version nibble found at the start of the
// packet. Callers must not invoke this on a Packet shorter than 1 byte.
func (p *Packet) Version() uint8 { return p.buf[0] >> 4 }

// Bytes returns the valid payload of the packet.
func (p *Packet) Bytes() []byte { return p.buf[:p.n] }

// Len returns the number of valid bytes in the packet.
func (p *Packet) Len() int { return p.n }

// Source returns the packet's IP source address.
func (p *Packet) Source() netip.Addr {
	switch p.Version() {
	case 4:
		return netip.AddrFrom4([4]byte(p.buf[12:16]))
	case 6:
		return netip.AddrFrom16([16]byte(p.buf[8:24]))
	default:
		panic("placeholder: packet has invalid IP version")
	}
}

// Destination returns the packet's IP destination address.
func (p *Packet) Destination() netip.Addr {
	switch p.Version() {
	case 4:
		return netip.AddrFrom4([4]byte(p.buf[16:20]))
	case 6:
		return netip.AddrFrom16([16]byte(p.buf[24:40]))
	default:
		panic("placeholder: packet has invalid IP version")
	}
}

// TTL returns the IPv4 TTL / IPv6 hop-limit byte. The caller must know
// the packet is long enough for its declared version.
func (p *Packet) TTL() uint8 {
	if p.Version() == 4 {
		return p.buf[8]
	}
	return p.buf[7]
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet v%d %s -> %s (%d bytes)", p.Version(), p.Source(), p.Destination(), p.n)
}

// validPacket reports whether the packet has a recognized IP version and is
// long enough to hold that version's fixed header. Malformed packets
// must be dropped by the caller.
func validPacket(buf []byte) bool {
	if len(buf) < 1 {
		return false
	}
	switch buf[0] >> 4 {
	case 4:
		return len(buf) >= ipv4.HeaderLen
	case 6:
		return len(buf) >= ipv6.HeaderLen
	default:
		return false
	}
}

// bufferPool is a fixed-size (maxPacketSize), mutex-guarded free list
// of byte slices, refilled in bursts when empty. It lets the dispatch
// loop reuse its 1500-byte read buffers; each get still allocates a
// small Packet header, and packets decoded off the wire are fresh
// copies rather than pooled buffers.
type bufferPool struct {
	mu   sync.Mutex
	free [][]byte
}

func newBufferPool() *bufferPool {
	return &bufferPool{}
}

// get returns a Packet backed by a pooled buffer with capacity
// maxPacketSize and n set to 0. Refills the pool in bursts of
// bufferPoolRefill when it runs dry.
func (p *bufferPool) get() *Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		for i := 0; i < bufferPoolRefill; i++ {
			p.free = append(p.free, make([]byte, maxPacketSize))
		}
	}
	last := len(p.free) - 1
	buf := p.free[last]
	p.free = p.free[:last]
	return &Packet{buf: buf}
}

// put returns a Packet's backing buffer to the pool. Safe to call
// exactly once per Packet obtained from get; callers must not retain
// the Packet afterwards.
func (p *bufferPool) put(pkt *Packet) {
	if pkt == nil || pkt.buf == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, pkt.buf[:maxPacketSize])
}

// fromReadBuffer wraps the first n bytes of a pooled buffer already
// filled by a TUN/UDP read into a Packet. It rejects malformed input;
// the caller must drop the packet and log a warning, since the parser
// itself never errors or allocates.
func fromReadBuffer(buf []byte, n int) (*Packet, bool) {
	if !validPacket(buf[:n]) {
		return nil, false
	}
	return &Packet{buf: buf, n: n}, true
}
