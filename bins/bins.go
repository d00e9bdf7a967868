// Package bins provides the 64-bit bin numbering scheme used to address
// nodes in the binary tree over a chunked content stream. Chunks are the
// base layer (layer 0); a bin one layer up covers two chunks, and so on.
package bins

import (
	"fmt"
	"math"
	"math/bits"
)

// Bin is the label of a node in the infinite binary tree over the chunk
// sequence. The encoding packs (layer, offset) so that an in-order
// traversal of the tree visits labels in increasing numeric order:
//
//	layer 2            3
//	                 /   \
//	layer 1        1       5       9
//	              / \     / \     / \
//	layer 0      0   2   4   6   8   10
//
// A bin at layer L with layer offset O has value (O << (L+1)) | ((1<<L)-1),
// so the layer is recoverable as the count of trailing one bits.
type Bin uint64

// None is the distinguished "no bin" value.
const None Bin = math.MaxUint64

// New returns the bin at the given layer and layer offset.
func New(layer, offset uint64) Bin {
	return Bin((offset << (layer + 1)) | ((1 << layer) - 1))
}

// Base returns the base-layer bin for the given chunk id.
func Base(chunk uint64) Bin {
	return New(0, chunk)
}

func (b Bin) IsNone() bool { return b == None }

// Layer returns the layer of the bin, counting the base layer as 0.
func (b Bin) Layer() uint64 {
	return uint64(bits.TrailingZeros64(^uint64(b)))
}

// LayerOffset returns the offset of the bin within its layer.
func (b Bin) LayerOffset() uint64 {
	return uint64(b) >> (b.Layer() + 1)
}

// BaseOffset returns the layer-0 offset of the leftmost chunk covered by b.
func (b Bin) BaseOffset() uint64 {
	l := b.Layer()
	return (uint64(b) >> (l + 1)) << l
}

// BaseLength returns the number of base-layer bins covered by b.
func (b Bin) BaseLength() uint64 {
	return 1 << b.Layer()
}

// BaseLeft returns the leftmost base-layer bin covered by b.
func (b Bin) BaseLeft() Bin {
	return New(0, b.BaseOffset())
}

// BaseRight returns the rightmost base-layer bin covered by b.
func (b Bin) BaseRight() Bin {
	return New(0, b.BaseOffset()+b.BaseLength()-1)
}

// IsBase reports whether the bin is at layer 0. The encoding makes every
// base bin even.
func (b Bin) IsBase() bool { return uint64(b)&1 == 0 }

// Parent returns the bin one layer up that covers b and its sibling.
func (b Bin) Parent() Bin {
	l := b.Layer()
	return New(l+1, (uint64(b)>>(l+1))>>1)
}

// Sibling returns the other child of b's parent.
func (b Bin) Sibling() Bin {
	l := b.Layer()
	return New(l, (uint64(b)>>(l+1))^1)
}

// IsLeft reports whether b is the left child of its parent.
func (b Bin) IsLeft() bool {
	l := b.Layer()
	return (uint64(b)>>(l+1))&1 == 0
}

// IsRight reports whether b is the right child of its parent.
func (b Bin) IsRight() bool { return !b.IsLeft() }

// Left returns the left child of b. The result is only meaningful for
// bins above the base layer.
func (b Bin) Left() Bin {
	l := b.Layer()
	if l == 0 {
		return b
	}
	return New(l-1, (uint64(b)>>(l+1))<<1)
}

// Right returns the right child of b. The result is only meaningful for
// bins above the base layer.
func (b Bin) Right() Bin {
	l := b.Layer()
	if l == 0 {
		return b
	}
	return New(l-1, ((uint64(b)>>(l+1))<<1)|1)
}

// Contains reports whether the subtree rooted at b includes other. A bin
// contains itself. None contains nothing and is contained by nothing.
func (b Bin) Contains(other Bin) bool {
	if b.IsNone() || other.IsNone() {
		return false
	}
	return b.BaseOffset() <= other.BaseOffset() &&
		other.BaseOffset()+other.BaseLength() <= b.BaseOffset()+b.BaseLength()
}

// String renders the bin as "(layer,offset)", the form used in the
// checkpoint file and throughout diagnostics.
func (b Bin) String() string {
	if b.IsNone() {
		return "(none)"
	}
	return fmt.Sprintf("(%d,%d)", b.Layer(), b.LayerOffset())
}

// Log2Uint64 efficiently computes log base 2 of num
func Log2Uint64(num uint64) uint64 {
	return uint64(bits.Len64(num) - 1)
}

// IsPow2 reports whether num is a power of two.
func IsPow2(num uint64) bool {
	return num != 0 && num&(num-1) == 0
}
