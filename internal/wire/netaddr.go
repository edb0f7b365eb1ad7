package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// NetAddr is a peer network address as carried inside version/addr payloads.
// IPv4 addresses are stored IPv4-mapped into the 16-byte field, per the
// data model's network-address record.
type NetAddr struct {
	Services uint64
	IP       [16]byte
	Port     uint16 // stored big-endian on the wire
}

var v4InV6Prefix = [12]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff}

// NetAddrFromTCP maps a dialed/accepted TCP address onto the wire's
// IPv4-mapped-IPv6 address form.
func NetAddrFromTCP(addr *net.TCPAddr, services uint64) NetAddr {
	var out NetAddr
	out.Services = services
	out.Port = uint16(addr.Port)
	if v4 := addr.IP.To4(); v4 != nil {
		copy(out.IP[:12], v4InV6Prefix[:])
		copy(out.IP[12:], v4)
		return out
	}
	if v6 := addr.IP.To16(); v6 != nil {
		copy(out.IP[:], v6)
	}
	return out
}

// String renders the address in host:port form, unwrapping IPv4-mapped
// addresses back to dotted-quad.
func (a NetAddr) String() string {
	ip := net.IP(a.IP[:])
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%s:%d", v4.String(), a.Port)
	}
	return fmt.Sprintf("[%s]:%d", ip.String(), a.Port)
}

const netAddrLen = 8 + 16 + 2

func encodeNetAddr(a NetAddr) []byte {
	out := make([]byte, netAddrLen)
	binary.LittleEndian.PutUint64(out[0:8], a.Services)
	copy(out[8:24], a.IP[:])
	binary.BigEndian.PutUint16(out[24:26], a.Port)
	return out
}

func decodeNetAddr(b []byte) (NetAddr, error) {
	if len(b) < netAddrLen {
		return NetAddr{}, fmt.Errorf("wire: net_addr: truncated")
	}
	var a NetAddr
	a.Services = binary.LittleEndian.Uint64(b[0:8])
	copy(a.IP[:], b[8:24])
	a.Port = binary.BigEndian.Uint16(b[24:26])
	return a, nil
}
