package placeholder

import (
	"github.com/mistsys/tuntap"
)

// TunDevice is a thin adapter over github.com/mistsys/tuntap's
// Interface, narrowing it to the read/write/close surface the dispatch
// loop needs. Device open/ioctl details are entirely owned by the
// vendored package.
type TunDevice struct {
	iface *tuntap.Interface
}

// OpenTUN opens (or creates) the named TUN interface. Only the "tun"
// device type is supported.
func OpenTUN(name string) (*TunDevice, error) {
	iface, err := tuntap.Open(name, tuntap.DevTun)
	if err != nil {
		return nil, err
	}
	return &TunDevice{iface: iface}, nil
}

// Name returns the kernel-assigned interface name.
func (t *TunDevice) Name() string { return t.iface.Name() }

// Close releases the TUN file descriptor.
func (t *TunDevice) Close() error { return t.iface.Close() }

// ReadInto reads one IP datagram into buf, returning the number of
// bytes read. Packets that fail the underlying package's own
// truncation checks are still returned with their available bytes so
// the caller can apply its own validity check uniformly.
func (t *TunDevice) ReadInto(buf []byte) (int, error) {
	pkt, err := t.iface.ReadPacket(buf)
	if err != nil && err != tuntap.ErrTruncatedPacket {
		return 0, err
	}
	return len(pkt.Body), nil
}

// Write sends one IP datagram to the kernel.
func (t *TunDevice) Write(buf []byte) error {
	return t.iface.WritePacket(tuntap.Packet{Body: buf})
}
