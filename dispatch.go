package placeholder

import (
	"context"
	"log"
	"net"
	"net/netip"
	"sync"
	"time"
)

// shutdownDrainTimeout bounds how long Run waits for its goroutines to
// exit on shutdown.
const shutdownDrainTimeout = 2 * time.Second

// packetConn is the minimal transport seam the Dispatcher depends on;
// *net.UDPConn satisfies it. Narrowing to an interface here is what
// makes dispatch_test.go's mock possible.
type packetConn interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	Close() error
}

// tunIO is the minimal TUN seam the Dispatcher depends on; *TunDevice
// satisfies it. Narrowed to an interface for the same reason as
// packetConn: dispatch_test.go drives the loop against an in-memory
// fake instead of a real kernel device.
type tunIO interface {
	ReadInto(buf []byte) (int, error)
	Write(buf []byte) error
}

// routerJob is one unit of work handed to the single dispatcher
// goroutine: an incoming Message plus the address it arrived from (the
// zero AddrPort for TUN-sourced reads).
type routerJob struct {
	source netip.AddrPort
	msg    Message
}

// Dispatcher is the top-level event loop. It owns the TUN endpoint
// and both UDP sockets, drives all I/O, and is the only place
// Router.Dispatch is called from.
type Dispatcher struct {
	tun  tunIO
	udp4 packetConn
	udp6 packetConn

	router *Router
	pool   *bufferPool

	jobs chan routerJob
	wg   sync.WaitGroup

	// Tracer is optional; a nil value disables tracing entirely.
	Tracer *Tracer
}

// NewDispatcher wires a Router to a TUN device and the two UDP
// sockets. jobQueueSize bounds the in-flight work queue; callers
// should size this close to the buffer pool's high-water mark so a
// burst of reads never blocks a reader goroutine against a full
// queue.
func NewDispatcher(tun tunIO, udp4, udp6 packetConn, router *Router, jobQueueSize int) *Dispatcher {
	return &Dispatcher{
		tun:    tun,
		udp4:   udp4,
		udp6:   udp6,
		router: router,
		pool:   newBufferPool(),
		jobs:   make(chan routerJob, jobQueueSize),
	}
}

// Run starts the reader goroutines and the dispatcher goroutine, and
// blocks until ctx is cancelled, then waits up to shutdownDrainTimeout
// for those goroutines to exit. Jobs still queued at cancellation are
// not processed. A reader blocked in a read exits only once its TUN
// device or socket is closed, so Run can return on the timeout with
// readers still running.
func (d *Dispatcher) Run(ctx context.Context) {
	d.wg.Add(4)
	go d.readTUN(ctx)
	go d.readUDP(ctx, d.udp4)
	go d.readUDP(ctx, d.udp6)
	go d.dispatchLoop(ctx)

	<-ctx.Done()
	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownDrainTimeout):
		log.Printf("placeholder: dispatcher shutdown timed out waiting for goroutines")
	}
}

// Bootstrap sends the initial greeting to every configured bootstrap
// peer. Called once after Run starts.
func (d *Dispatcher) Bootstrap(peers []netip.AddrPort) {
	for _, addr := range peers {
		d.sendMessage(d.router.Bootstrap(addr))
	}
}

func (d *Dispatcher) readTUN(ctx context.Context) {
	defer d.wg.Done()
	for ctx.Err() == nil {
		pkt := d.pool.get()
		n, err := d.tun.ReadInto(pkt.buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("placeholder: tun read error: %v", err)
			continue
		}
		if !validPacket(pkt.buf[:n]) {
			log.Printf("placeholder: dropping malformed packet read from tun")
			d.Tracer.packetDropped("malformed tun packet")
			continue
		}
		pkt.n = n
		select {
		case d.jobs <- routerJob{msg: InterfaceRead{Packet: pkt}}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) readUDP(ctx context.Context, conn packetConn) {
	defer d.wg.Done()
	if conn == nil {
		return
	}
	for ctx.Err() == nil {
		pkt := d.pool.get()
		n, source, err := conn.ReadFromUDPAddrPort(pkt.buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("placeholder: udp read error: %v", err)
			continue
		}
		d.Tracer.receivedPacket(source, n)
		msg := Decode(source, pkt.buf[:n])
		d.pool.put(pkt)
		select {
		case d.jobs <- routerJob{source: source, msg: msg}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) dispatchLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobs:
			for _, out := range d.router.Dispatch(job.source, job.msg) {
				d.sendMessage(out)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) sendMessage(msg Message) {
	switch m := msg.(type) {
	case InterfaceWrite:
		if err := d.tun.Write(m.Packet.Bytes()); err != nil {
			log.Printf("placeholder: tun write error: %v", err)
		}
		d.pool.put(m.Packet)
	case PackageShareWrite:
		d.sendUDP(m.Addr, EncodePackageShare(m.Packet, m.TTL))
		d.pool.put(m.Packet)
	case AddNodeWrite:
		d.sendUDP(m.Addr, EncodeNode(payloadTypeAddNode, m.Node))
	case DelNodeWrite:
		d.sendUDP(m.Addr, EncodeNode(payloadTypeDelNode, m.Node))
	case PingPongWrite:
		d.sendUDP(m.Addr, EncodePing(m.Name))
	default:
		log.Printf("placeholder: dispatcher: unexpected write message %T", m)
	}
}

func (d *Dispatcher) sendUDP(addr netip.AddrPort, payload []byte) {
	conn := d.udp6
	if addr.Addr().Is4() || addr.Addr().Is4In6() {
		conn = d.udp4
	}
	if conn == nil {
		log.Printf("placeholder: no socket available for %s", addr)
		return
	}
	n, err := conn.WriteToUDPAddrPort(payload, addr)
	if err != nil {
		log.Printf("placeholder: udp send to %s failed: %v", addr, err)
		return
	}
	d.Tracer.sentPacket(addr, n)
}

// ListenUDP binds the IPv4 socket and a v6-only IPv6 socket on the
// same port, so the node can reach peers over either address family
// without a dual-stack socket silently shadowing one of them.
func ListenUDP(port uint16) (v4, v6 *net.UDPConn, err error) {
	v4, err = net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: int(port)})
	if err != nil {
		return nil, nil, err
	}
	v6, err = net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6unspecified, Port: int(port)})
	if err != nil {
		v4.Close()
		return nil, nil, err
	}
	return v4, v6, nil
}
