package placeholder

import (
	"net/netip"
	"sync"
)

// trieNode is one node of the bit-trie: each address octet is expanded
// MSB-first into 8 byte-valued bits, so a mask of M bits is simply a
// path of length M from the root. peer is non-nil exactly at nodes
// that terminate an inserted route.
type trieNode struct {
	children [2]*trieNode
	peer     *Peer
}

// expandBits expands addr into its per-bit sequence, one byte per bit,
// MSB first, so each bit can index a trie node's two children directly.
func expandBits(addr netip.Addr) []byte {
	raw := addr.AsSlice()
	bits := make([]byte, 0, len(raw)*8)
	for _, octet := range raw {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (octet>>uint(i))&1)
		}
	}
	return bits
}

// RoutingTable is two parallel LPM tries (IPv4, IPv6) keyed on the
// bit-expanded destination address, plus a name-indexed peer registry.
type RoutingTable struct {
	mu4 sync.RWMutex
	v4  *trieNode

	mu6 sync.RWMutex
	v6  *trieNode

	peerMu sync.RWMutex
	peers  map[string]*Peer
}

// NewRoutingTable constructs an empty table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{
		v4:    &trieNode{},
		v6:    &trieNode{},
		peers: make(map[string]*Peer),
	}
}

func (rt *RoutingTable) familyLock(addr netip.Addr) (*sync.RWMutex, **trieNode) {
	if addr.Is4() {
		return &rt.mu4, &rt.v4
	}
	return &rt.mu6, &rt.v6
}

func (rt *RoutingTable) peerFor(name string) *Peer {
	rt.peerMu.Lock()
	defer rt.peerMu.Unlock()
	p, ok := rt.peers[name]
	if !ok {
		p = newPeer(name)
		rt.peers[name] = p
	}
	return p
}

// InsertLocal binds name as the Peer reachable via our own TUN
// interface. Used once at startup for the node's own subnet.
func (rt *RoutingTable) InsertLocal(prefix netip.Prefix, name string) (novel bool) {
	peer := rt.peerFor(name)
	novel = peer.addLocal()
	rt.insertNode(prefix, peer)
	return novel
}

// Insert truncates prefix to its mask and upserts peerName's Peer
// record at that key, merging reach into the Peer's candidate
// multiset. Returns whether reach was a novel candidate for that peer.
func (rt *RoutingTable) Insert(prefix netip.Prefix, peerName string, reach netip.AddrPort) (novel bool) {
	peer := rt.peerFor(peerName)
	novel = peer.addRemote(reach)
	rt.insertNode(prefix, peer)
	return novel
}

func (rt *RoutingTable) insertNode(prefix netip.Prefix, peer *Peer) {
	mu, rootPtr := rt.familyLock(prefix.Addr())
	bits := expandBits(prefix.Addr())[:prefix.Bits()]

	mu.Lock()
	defer mu.Unlock()
	node := *rootPtr
	for _, bit := range bits {
		if node.children[bit] == nil {
			node.children[bit] = &trieNode{}
		}
		node = node.children[bit]
	}
	node.peer = peer
}

// Delete removes the route at prefix, if any. Fails silently if
// absent.
func (rt *RoutingTable) Delete(prefix netip.Prefix) {
	mu, rootPtr := rt.familyLock(prefix.Addr())
	bits := expandBits(prefix.Addr())[:prefix.Bits()]

	mu.Lock()
	defer mu.Unlock()
	node := *rootPtr
	for _, bit := range bits {
		node = node.children[bit]
		if node == nil {
			return
		}
	}
	node.peer = nil
}

// Find performs a longest-prefix-match lookup for addr, returning the
// Peer bound to the most specific covering prefix, or nil if none
// covers addr.
func (rt *RoutingTable) Find(addr netip.Addr) *Peer {
	mu, rootPtr := rt.familyLock(addr)
	bits := expandBits(addr)

	mu.RLock()
	defer mu.RUnlock()
	node := *rootPtr
	var best *Peer
	if node.peer != nil {
		best = node.peer
	}
	for _, bit := range bits {
		node = node.children[bit]
		if node == nil {
			break
		}
		if node.peer != nil {
			best = node.peer
		}
	}
	return best
}

// GetByName returns the Peer registered under name, or nil if unknown.
func (rt *RoutingTable) GetByName(name string) *Peer {
	rt.peerMu.RLock()
	defer rt.peerMu.RUnlock()
	return rt.peers[name]
}

// EnumerateReachable returns the socket address of every Peer whose
// best reachability is currently Remote, for broadcast fan-out.
func (rt *RoutingTable) EnumerateReachable() []netip.AddrPort {
	rt.peerMu.RLock()
	defer rt.peerMu.RUnlock()

	addrs := make([]netip.AddrPort, 0, len(rt.peers))
	for _, p := range rt.peers {
		if addr, ok := p.Best().Addr(); ok {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// Snapshot returns every known Peer name paired with its current best
// Reachability, for operational introspection.
func (rt *RoutingTable) Snapshot() map[string]Reachability {
	rt.peerMu.RLock()
	defer rt.peerMu.RUnlock()

	out := make(map[string]Reachability, len(rt.peers))
	for name, p := range rt.peers {
		out[name] = p.Best()
	}
	return out
}
