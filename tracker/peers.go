package tracker

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// Compact peer record widths: 4 byte IPv4 address plus big-endian port,
// 16 byte IPv6 address plus port.
const (
	compactV4Len = 6
	compactV6Len = 18
)

// ParseCompactPeers decodes a contiguous sequence of fixed-width peer
// records as delivered under the "peers" (IPv4) or "peers6" (IPv6)
// dictionary keys.
func ParseCompactPeers(data []byte, ipv6 bool) ([]netip.AddrPort, error) {
	recLen := compactV4Len
	if ipv6 {
		recLen = compactV6Len
	}
	if len(data)%recLen != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrBadPeerRecords, len(data), recLen)
	}

	peers := make([]netip.AddrPort, 0, len(data)/recLen)
	for off := 0; off < len(data); off += recLen {
		rec := data[off : off+recLen]
		addr, ok := netip.AddrFromSlice(rec[:recLen-2])
		if !ok {
			return nil, fmt.Errorf("%w: bad address at record %d", ErrBadPeerRecords, off/recLen)
		}
		port := binary.BigEndian.Uint16(rec[recLen-2:])
		peers = append(peers, netip.AddrPortFrom(addr, port))
	}
	return peers, nil
}

// EncodeCompactPeers is the inverse of ParseCompactPeers. Every address
// must be of the family selected by ipv6.
func EncodeCompactPeers(peers []netip.AddrPort, ipv6 bool) ([]byte, error) {
	recLen := compactV4Len
	if ipv6 {
		recLen = compactV6Len
	}
	out := make([]byte, 0, len(peers)*recLen)
	for _, p := range peers {
		if p.Addr().Is4() == ipv6 {
			return nil, fmt.Errorf("%w: mixed address family", ErrBadPeerRecords)
		}
		addr := p.Addr().AsSlice()
		out = append(out, addr...)
		out = binary.BigEndian.AppendUint16(out, p.Port())
	}
	return out, nil
}
