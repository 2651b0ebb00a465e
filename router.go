package placeholder

import (
	"log"
	"net/netip"
)

// interfaceTTL is the ttl value assigned to packets freshly captured
// off the local TUN device, before any overlay hop has been taken.
const interfaceTTL = 127

// Router is the pure transition function over (optional source
// address, incoming Message) -> (outgoing Messages). The routing
// table is its only mutable state; it performs no I/O.
type Router struct {
	table *RoutingTable

	ownName   string
	ownSubnet netip.Prefix
	ownPort   uint16

	// selfAnnouncement is built once and reused for bootstrap greetings
	// and for replies to AddNode greetings, so every reply always
	// describes this node as it was configured at startup.
	selfAnnouncement NodeAnnouncement

	// Tracer is optional; a nil value disables tracing entirely.
	Tracer *Tracer
}

// NewRouter constructs a Router for a node named ownName, owning
// ownSubnet, listening on ownPort. The node's own subnet is installed
// into the table as Local immediately.
func NewRouter(table *RoutingTable, ownName string, ownSubnet netip.Prefix, ownPort uint16) *Router {
	table.InsertLocal(ownSubnet, ownName)
	return &Router{
		table:     table,
		ownName:   ownName,
		ownSubnet: ownSubnet,
		ownPort:   ownPort,
		selfAnnouncement: NodeAnnouncement{
			Name:   ownName,
			Subnet: ownSubnet,
			Port:   ownPort,
			Jump:   bootstrapJump,
		},
	}
}

// Bootstrap returns the initial greeting to send to a configured
// bootstrap peer.
func (r *Router) Bootstrap(bootstrapAddr netip.AddrPort) AddNodeWrite {
	return AddNodeWrite{Addr: bootstrapAddr, Node: r.selfAnnouncement}
}

// Dispatch applies one incoming Message and returns zero or more
// outgoing Messages. source is the socket address the message arrived
// from, or the zero value for messages sourced locally (TUN reads).
// Write-direction messages must never be fed back in; doing so is a
// programmer error.
func (r *Router) Dispatch(source netip.AddrPort, msg Message) []Message {
	switch m := msg.(type) {
	case InterfaceRead:
		return r.Dispatch(source, PackageShareRead{Packet: m.Packet, TTL: interfaceTTL})

	case PackageShareRead:
		return r.dispatchPackageShare(m)

	case AddNodeRead:
		return r.dispatchAddNode(m)

	case DelNodeRead:
		// Acknowledged, no-op: there is no reference-counted removal of
		// routes installed by other peers, so a DelNode currently only
		// confirms receipt.
		return nil

	case PingPongRead:
		return []Message{PingPongWrite{Addr: m.Source, Name: r.ownName}}

	case Nop:
		return nil

	default:
		log.Printf("placeholder: router: unexpected message type %T", m)
		return nil
	}
}

func (r *Router) dispatchPackageShare(m PackageShareRead) []Message {
	peer := r.table.Find(m.Packet.Destination())
	if peer == nil {
		log.Printf("placeholder: no route to %s, dropping packet", m.Packet.Destination())
		r.Tracer.packetDropped("no route")
		return nil
	}

	best := peer.Best()
	switch {
	case best.Local():
		return []Message{InterfaceWrite{Packet: m.Packet}}
	case best.Unreachable():
		log.Printf("placeholder: %s unreachable, dropping packet", peer.Name())
		r.Tracer.packetDropped("unreachable")
		return nil
	default:
		addr, _ := best.Addr()
		if m.TTL == 0 {
			log.Printf("placeholder: ttl expired, dropping packet to %s", peer.Name())
			r.Tracer.packetDropped("ttl expired")
			return nil
		}
		return []Message{PackageShareWrite{Addr: addr, Packet: m.Packet, TTL: m.TTL - 1}}
	}
}

func (r *Router) dispatchAddNode(m AddNodeRead) []Message {
	if m.Node.Name == r.ownName {
		return nil
	}

	// jump == 0 is a direct greeting; jump == bootstrapJump (-1) is the
	// sentinel first-contact greeting, which likewise must resolve to
	// source_addr. Any jump > 0 means the announcement was relayed and
	// carries the true origin in real_ip/port.
	effectiveSource := m.Source
	if m.Node.Jump > 0 {
		if !m.Node.RealAddr.IsValid() {
			log.Printf("placeholder: relayed add-node for %s missing real address, dropping", m.Node.Name)
			return nil
		}
		effectiveSource = netip.AddrPortFrom(m.Node.RealAddr, m.Node.Port)
	}

	novel := r.table.Insert(m.Node.Subnet, m.Node.Name, effectiveSource)
	if !novel {
		// Loop-breaker: suppress re-broadcast of an already-known
		// binding. This is the only defense against broadcast storms
		// in the current design.
		return nil
	}
	if peer := r.table.GetByName(m.Node.Name); peer != nil {
		r.Tracer.routeInstalled(m.Node.Name, peer.Best())
	}

	relay := m.Node
	// A fresh greeting's jump is 0 or the bootstrapJump sentinel (-1);
	// both mean "no hops taken yet", so the relay we send on carries
	// jump=1, not 0. A relayed node must never look like a direct
	// greeting to the next hop.
	relay.Jump = max(relay.Jump, 0) + 1
	relay.RealAddr = effectiveSource.Addr()
	relay.Port = effectiveSource.Port()

	var out []Message
	for _, addr := range r.table.EnumerateReachable() {
		out = append(out, AddNodeWrite{Addr: addr, Node: relay})
	}
	out = append(out, AddNodeWrite{Addr: m.Source, Node: r.selfAnnouncement})
	return out
}

// Snapshot exposes the underlying table's peer/reachability view for
// operational introspection.
func (r *Router) Snapshot() map[string]Reachability {
	return r.table.Snapshot()
}
