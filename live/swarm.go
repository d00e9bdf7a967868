package live

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"

	"github.com/forestrie/go-livestream/livetree"
)

// SwarmID identifies the group of peers sharing one stream. A live
// swarm is identified by the source's public key; a file swarm by the
// Merkle root hash of the content.
type SwarmID struct {
	live bool
	data []byte
}

// NewPublicKeySwarmID returns the id of a live swarm from the encoded
// swarm public key.
func NewPublicKeySwarmID(pub []byte) SwarmID {
	return SwarmID{live: true, data: append([]byte{}, pub...)}
}

// NewRootHashSwarmID returns the id of a file swarm.
func NewRootHashSwarmID(root livetree.Hash) SwarmID {
	return SwarmID{data: append([]byte{}, root[:]...)}
}

func (s SwarmID) IsLive() bool { return s.live }

func (s SwarmID) Equal(other SwarmID) bool {
	return s.live == other.live && bytes.Equal(s.data, other.data)
}

// InfoHash derives the 20 byte tracker infohash: the root hash for file
// swarms, the digest of the public key bytes for live swarms.
func (s SwarmID) InfoHash() livetree.Hash {
	if s.live {
		return livetree.Hash(sha1.Sum(s.data))
	}
	var h livetree.Hash
	copy(h[:], s.data)
	return h
}

func (s SwarmID) String() string {
	h := s.InfoHash()
	return hex.EncodeToString(h[:])
}
