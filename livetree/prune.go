package livetree

import (
	"fmt"

	"github.com/forestrie/go-livestream/bins"
)

// PruneTree forgets the descendants of the subtree rooted at pos. The
// node itself stays, keeping its hash serveable as an uncle for proofs
// toward newer peaks, but everything below it is released. Only fully
// signed subtrees outside the discard window are pruned; no ancestor on
// the path to a currently signed peak is ever removed.
func (t *LiveHashTree) PruneTree(pos bins.Bin) error {
	n := t.findNode(pos)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrBinNotPresent, pos)
	}
	// Unlink the back references so released nodes cannot reach live
	// ones, then drop the forward edges.
	if n.left != nil {
		n.left.parent = nil
	}
	if n.right != nil {
		n.right.parent = nil
	}
	n.left = nil
	n.right = nil
	return nil
}
