// Package peer decodes the compact peer list a tracker returns: six bytes
// per peer, a 4-byte IPv4 address followed by a 2-byte big-endian port.
package peer

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
)

// compactSize is the wire size of one peer entry: 4 IP bytes + 2 port bytes.
const compactSize = 6

// Peer is one remote endpoint from the tracker's compact peer list.
type Peer struct {
	IP   net.IP
	Port uint16
}

// Unmarshal decodes a compact peer blob into its peers. The blob's length
// must be an exact multiple of the 6-byte entry size.
func Unmarshal(compact []byte) ([]Peer, error) {
	if len(compact)%compactSize != 0 {
		return nil, fmt.Errorf("malformed compact peer list: %d bytes is not a multiple of %d", len(compact), compactSize)
	}
	peers := make([]Peer, 0, len(compact)/compactSize)
	for off := 0; off < len(compact); off += compactSize {
		entry := compact[off : off+compactSize]
		peers = append(peers, Peer{
			IP:   net.IPv4(entry[0], entry[1], entry[2], entry[3]),
			Port: binary.BigEndian.Uint16(entry[4:6]),
		})
	}
	return peers, nil
}

// String renders the peer as a dialable "host:port" address.
func (p Peer) String() string {
	return net.JoinHostPort(p.IP.String(), strconv.Itoa(int(p.Port)))
}
