package live

import (
	"github.com/forestrie/go-livestream/binmaps"
	"github.com/forestrie/go-livestream/bins"
	"github.com/forestrie/go-livestream/livetree"
)

// HashTree is the capability the transfer and channel layers need from
// a content hash tree, whether it is the live tree or a fixed tree over
// known content. Consumers hold this rather than a concrete tree so the
// two kinds stay interchangeable.
type HashTree interface {
	AckOut() *binmaps.Binmap
	Hash(pos bins.Bin) livetree.Hash
	Peak(i int) bins.Bin
	PeakCount() int
	Size() uint64
	ChunkSize() uint32
	OfferHash(pos bins.Bin, h livetree.Hash) bool
	OfferData(pos bins.Bin, data []byte) error
}

var _ HashTree = (*livetree.LiveHashTree)(nil)
