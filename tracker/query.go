package tracker

import (
	"strconv"
	"strings"

	"github.com/forestrie/go-livestream/livetree"
)

// Announce events defined by the tracker protocol. An empty event means
// a regular working announce.
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventStopped   = "stopped"
)

// AnnounceParams carries one announce's swarm state.
type AnnounceParams struct {
	InfoHash   livetree.Hash
	Port       uint16
	Uploaded   uint64
	Downloaded uint64
	Left       uint64
	Event      string
}

// buildQuery renders the announce query string in the conventional key
// order. A compact peer list is always requested.
func (c *Client) buildQuery(p AnnounceParams) string {
	var q strings.Builder

	q.WriteString("info_hash=")
	q.WriteString(uriEncode(p.InfoHash[:]))
	q.WriteString("&peer_id=")
	q.WriteString(uriEncode(c.peerID[:]))
	q.WriteString("&port=")
	q.WriteString(strconv.FormatUint(uint64(p.Port), 10))
	q.WriteString("&uploaded=")
	q.WriteString(strconv.FormatUint(p.Uploaded, 10))
	q.WriteString("&downloaded=")
	q.WriteString(strconv.FormatUint(p.Downloaded, 10))
	q.WriteString("&left=")
	q.WriteString(strconv.FormatUint(p.Left, 10))
	q.WriteString("&compact=1")

	if p.Event != "" {
		q.WriteString("&event=")
		q.WriteString(p.Event)
	}
	return q.String()
}

const upperhex = "0123456789ABCDEF"

// uriEncode percent-encodes arbitrary bytes, leaving only the RFC 3986
// unreserved characters bare. The standard query escaping is not used
// because it encodes spaces as '+', which trackers do not accept for
// binary fields.
func uriEncode(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '-' || c == '_' || c == '.' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}
