package placeholder

import (
	"net/netip"
	"sort"
)

// reachKind orders Reachability candidates: Local beats any Remote,
// Remote beats Unreachable.
type reachKind uint8

const (
	reachUnreachable reachKind = iota
	reachRemote
	reachLocal
)

// Reachability is a tagged value describing how a Peer's traffic
// should be delivered. The zero value is Unreachable.
type Reachability struct {
	kind reachKind
	addr netip.AddrPort // valid only when kind == reachRemote
}

// Local reports whether this Reachability is the local TUN interface.
func (r Reachability) Local() bool { return r.kind == reachLocal }

// Unreachable reports whether no usable path currently exists.
func (r Reachability) Unreachable() bool { return r.kind == reachUnreachable }

// Addr returns the remote socket address and true if this Reachability
// is Remote; otherwise the zero AddrPort and false.
func (r Reachability) Addr() (netip.AddrPort, bool) {
	if r.kind != reachRemote {
		return netip.AddrPort{}, false
	}
	return r.addr, true
}

func (r Reachability) String() string {
	switch r.kind {
	case reachLocal:
		return "local"
	case reachRemote:
		return "remote(" + r.addr.String() + ")"
	default:
		return "unreachable"
	}
}

func localReachability() Reachability { return Reachability{kind: reachLocal} }

func remoteReachability(addr netip.AddrPort) Reachability {
	return Reachability{kind: reachRemote, addr: addr}
}

// candidate is one entry in a Peer's ranked reachability multiset: a
// Reachability plus an integer rank that increments every time the
// same candidate is re-added. The candidate set is a small slice,
// re-sorted after every mutation, so a rank bump always takes effect
// immediately rather than depending on a heap reorder.
type candidate struct {
	reach Reachability
	rank  int
}

// Peer is a logical identity with a unique name and a ranked multiset
// of reachability candidates.
type Peer struct {
	name       string
	candidates []candidate
}

func newPeer(name string) *Peer {
	return &Peer{name: name}
}

// Name returns the peer's logical name.
func (p *Peer) Name() string { return p.name }

// Best returns the highest-ranked reachability candidate: Local beats
// any Remote, Remote beats Unreachable, and ties among Remote
// candidates are broken by rank (higher wins). An empty candidate set
// reports Unreachable.
func (p *Peer) Best() Reachability {
	if len(p.candidates) == 0 {
		return Reachability{}
	}
	return p.candidates[0].reach
}

// addLocal merges a Local candidate into the peer, novel only the
// first time it is added.
func (p *Peer) addLocal() (novel bool) {
	return p.add(localReachability())
}

// addRemote merges a Remote(addr) candidate into the peer. Re-adding
// an already-known address increments its rank, strengthening
// preference for repeatedly reconfirmed endpoints, and is never novel;
// a never-seen address is inserted with rank 1 and is novel.
func (p *Peer) addRemote(addr netip.AddrPort) (novel bool) {
	return p.add(remoteReachability(addr))
}

func (p *Peer) add(reach Reachability) (novel bool) {
	for i := range p.candidates {
		if sameReach(p.candidates[i].reach, reach) {
			p.candidates[i].rank++
			p.resort()
			return false
		}
	}
	p.candidates = append(p.candidates, candidate{reach: reach, rank: 1})
	p.resort()
	return true
}

func sameReach(a, b Reachability) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == reachRemote {
		return a.addr == b.addr
	}
	return true
}

// resort keeps candidates ordered best-first: Local, then Remote by
// descending rank, then (implicitly) nothing for Unreachable, which is
// never stored as an explicit candidate.
func (p *Peer) resort() {
	sort.SliceStable(p.candidates, func(i, j int) bool {
		ci, cj := p.candidates[i], p.candidates[j]
		if ci.reach.kind != cj.reach.kind {
			return ci.reach.kind > cj.reach.kind
		}
		return ci.rank > cj.rank
	})
}
