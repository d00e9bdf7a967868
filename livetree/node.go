package livetree

import "github.com/forestrie/go-livestream/bins"

// node is a materialized position in the live tree. A parent owns its
// children; the parent back-reference is valid for as long as the parent
// is alive, which destruction order guarantees. A node's bin is always
// the parent bin of its children's bins when those children exist, and a
// verified node is either a signed peak or the join of two verified
// children.
type node struct {
	bin      bins.Bin
	hash     Hash
	verified bool
	parent   *node
	left     *node
	right    *node
}

func newNode(b bins.Bin) *node {
	return &node{bin: b}
}

// attachLeft links c as the left child of n.
func (n *node) attachLeft(c *node) {
	n.left = c
	if c != nil {
		c.parent = n
	}
}

// attachRight links c as the right child of n.
func (n *node) attachRight(c *node) {
	n.right = c
	if c != nil {
		c.parent = n
	}
}

// sibling returns the other child of n's parent, or nil.
func (n *node) sibling() *node {
	if n.parent == nil {
		return nil
	}
	if n.parent.left == n {
		return n.parent.right
	}
	return n.parent.left
}
