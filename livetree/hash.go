package livetree

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashSize is the byte length of all tree hashes.
const HashSize = sha1.Size

// Hash is a node hash in the live tree. Leaves are the hash of the chunk
// bytes, interior nodes the hash of the two child hashes concatenated.
type Hash [HashSize]byte

// ZeroHash marks an absent or unknown hash. A computed hash is never
// zero in practice: the join of two zero hashes is not zero.
var ZeroHash Hash

// HashChunk returns the leaf hash for the given chunk bytes.
func HashChunk(data []byte) Hash {
	return sha1.Sum(data)
}

// JoinHash returns the parent hash of the two child hashes.
func JoinHash(left, right Hash) Hash {
	h := sha1.New()
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func (h Hash) IsZero() bool { return h == ZeroHash }

// Hex returns the lowercase hexadecimal rendering used in checkpoints.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

// ParseHexHash parses a lowercase hexadecimal hash.
func ParseHexHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroHash, fmt.Errorf("%w: %v", ErrBadHashEncoding, err)
	}
	if len(b) != HashSize {
		return ZeroHash, fmt.Errorf("%w: got %d bytes", ErrBadHashEncoding, len(b))
	}
	copy(h[:], b)
	return h, nil
}
