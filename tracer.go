package placeholder

import "net/netip"

// Tracer can be used to observe the dispatch loop's traffic: sent and
// received datagrams, installed routes, and dropped packets. A nil
// field is simply not called.
type Tracer struct {
	// SentPacket is called after a datagram is written to a UDP socket.
	SentPacket func(addr netip.AddrPort, n int)
	// ReceivedPacket is called after a datagram is read from a UDP
	// socket, before it is decoded.
	ReceivedPacket func(addr netip.AddrPort, n int)
	// RouteInstalled is called whenever the routing table gains a novel
	// reachability candidate for name.
	RouteInstalled func(name string, reach Reachability)
	// PacketDropped is called whenever the dispatch loop or Router
	// discards a packet, with a short human-readable reason.
	PacketDropped func(reason string)
}

func (t *Tracer) sentPacket(addr netip.AddrPort, n int) {
	if t != nil && t.SentPacket != nil {
		t.SentPacket(addr, n)
	}
}

func (t *Tracer) receivedPacket(addr netip.AddrPort, n int) {
	if t != nil && t.ReceivedPacket != nil {
		t.ReceivedPacket(addr, n)
	}
}

func (t *Tracer) packetDropped(reason string) {
	if t != nil && t.PacketDropped != nil {
		t.PacketDropped(reason)
	}
}

func (t *Tracer) routeInstalled(name string, reach Reachability) {
	if t != nil && t.RouteInstalled != nil {
		t.RouteInstalled(name, reach)
	}
}
