package livetree

import (
	"fmt"
	"time"

	"github.com/forestrie/go-livestream/binmaps"
	"github.com/forestrie/go-livestream/bins"
)

// State tracks where a tree is in its lifecycle. A source tree moves
// from SignEmpty to SignData on the first append. A client tree starts
// in AwaitPeak and moves to AwaitData on the first verified signed
// munro, where it stays for the life of the stream.
type State int

const (
	StateSignEmpty State = iota
	StateSignData
	StateAwaitPeak
	StateAwaitData
)

// SignedPeak is a currently signed tree peak: a munro. The set of
// signed peaks is always a prefix subset of the current peaks at the
// source; subsumed older peaks are replaced as the tree grows.
type SignedPeak struct {
	Bin       bins.Bin
	Signature []byte
	Timestamp int64
}

// LiveHashTree is the dynamic Merkle tree over a live chunk stream. At
// the source it grows chunk by chunk and signs peak hashes on the epoch
// cadence; at a client it is reconstructed incrementally from streamed
// hashes, chunks and signed munros.
type LiveHashTree struct {
	state     State
	root      *node
	addcursor *node

	signer   Signer
	verifier Verifier

	chunkSize      uint32
	nchunksPerSign uint32

	peaks       []bins.Bin
	signedPeaks []SignedPeak

	size      uint64
	sizec     uint64
	complete  uint64
	completec uint64

	ackOut *binmaps.Binmap

	// candidate peak: a hash received before its enclosing signed munro
	candBin  bins.Bin
	candHash Hash
}

// NewSourceTree returns an empty tree for a live source. nchunksPerSign
// must be a power of two so that each epoch's last peak is uniquely
// defined.
func NewSourceTree(signer Signer, chunkSize, nchunksPerSign uint32) *LiveHashTree {
	return &LiveHashTree{
		state:          StateSignEmpty,
		signer:         signer,
		chunkSize:      chunkSize,
		nchunksPerSign: nchunksPerSign,
		ackOut:         binmaps.New(),
		candBin:        bins.None,
	}
}

// NewClientTree returns an empty tree for a live client hooking into an
// in-progress stream.
func NewClientTree(verifier Verifier, chunkSize uint32) *LiveHashTree {
	return &LiveHashTree{
		state:     StateAwaitPeak,
		verifier:  verifier,
		chunkSize: chunkSize,
		ackOut:    binmaps.New(),
		candBin:   bins.None,
	}
}

/*
 * Live source specific
 */

// AddData appends one chunk to the tree and returns its bin. The chunk
// is hashed as a new leaf, the node structure is extended to hold it,
// and the peak set is recomputed for the new chunk count.
func (t *LiveHashTree) AddData(data []byte) bins.Bin {
	next := t.createNext()
	next.hash = HashChunk(data)
	next.verified = true
	t.ackOut.Set(next.bin)

	t.size += uint64(len(data))
	t.sizec++
	t.complete += uint64(len(data))
	t.completec++
	t.peaks = bins.Peaks(t.sizec)

	t.state = StateSignData

	return next.bin
}

// createNext extends the tree with the node for the next leaf and
// returns it. The tree always holds exactly the nodes needed for the
// leaves appended so far: the live sub-peaks of a complete tree over
// sizec leaves, fused through their common ancestors up to one root.
func (t *LiveHashTree) createNext() *node {
	if t.addcursor == nil {
		t.root = newNode(bins.New(0, 0))
		t.addcursor = t.root
		return t.addcursor
	}

	if t.addcursor.bin.IsBase() && t.addcursor.bin.IsLeft() {
		// Left leaf: create the right sibling under the existing
		// parent, growing a new root when the cursor was the root.
		newright := newNode(t.addcursor.bin.Sibling())
		par := t.addcursor.parent
		if par == nil {
			par = newNode(t.addcursor.bin.Parent())
			t.root = par
		}
		par.attachLeft(t.addcursor)
		par.attachRight(newright)
		t.addcursor = newright
		return t.addcursor
	}

	// The cursor is a right child (or a restored checkpoint munro):
	// walk up until a node with a free right slot is found, splicing
	// new roots above the tree as needed. Root growth is only observable
	// once the new root is fully linked.
	iter := t.addcursor
	for {
		if iter.parent == nil {
			newroot := newNode(iter.bin.Parent())
			if iter.bin.IsLeft() {
				newroot.attachLeft(iter)
			} else {
				// A restored munro at an odd offset hangs on the right;
				// the older sibling subtree is unknown and stays absent.
				newroot.attachRight(iter)
			}
			t.root = newroot
		}
		iter = iter.parent
		if iter.right != nil {
			continue
		}

		// Fresh right subtree with only its leftmost leaf created.
		newright := newNode(iter.bin.Right())
		iter.attachRight(newright)
		for !newright.bin.IsBase() {
			newleft := newNode(newright.bin.Left())
			newright.attachLeft(newleft)
			newright = newleft
		}
		t.addcursor = newright
		return t.addcursor
	}
}

// UpdateSignedPeaks reconciles the signed peak set with the current
// peaks. New or changed peaks get their subtree hashes materialized and
// their hash signed; signatures of peaks subsumed by a larger peak are
// dropped. Returns the index of the first changed peak.
func (t *LiveHashTree) UpdateSignedPeaks() (int, error) {
	if t.signer == nil {
		return 0, ErrNotSourceTree
	}

	changed := len(t.signedPeaks) != len(t.peaks) || len(t.peaks) == 0
	if !changed {
		for i := range t.peaks {
			if t.signedPeaks[i].Bin != t.peaks[i] {
				changed = true
				break
			}
		}
	}
	if !changed {
		return 0, nil
	}

	start := -1
	signed := make([]SignedPeak, len(t.peaks))
	for i, pb := range t.peaks {
		if i < len(t.signedPeaks) && t.signedPeaks[i].Bin == pb {
			signed[i] = t.signedPeaks[i]
			continue
		}
		if start == -1 {
			start = i
		}

		// The subtree below a fresh peak is stable now, so the interior
		// hashes can be filled in and served as proofs.
		n := t.findNode(pb)
		if n == nil {
			return 0, fmt.Errorf("%w: %s", ErrPeakMissing, pb)
		}
		t.computeTree(n)

		sig, err := t.signer.Sign(munroContent(pb, n.hash))
		if err != nil {
			return 0, err
		}
		signed[i] = SignedPeak{Bin: pb, Signature: sig, Timestamp: time.Now().UnixMicro()}
	}
	t.signedPeaks = signed
	if start == -1 {
		start = 0
	}
	return start, nil
}

// computeTree materializes the interior hashes of the subtree rooted at
// n bottom-up. Leaves were hashed at append time. An absent child can
// only occur under a virtual root grown over a restored checkpoint
// munro; its hash contributes as zero, the same padding DeriveRoot uses.
func (t *LiveHashTree) computeTree(n *node) {
	if n.verified {
		return
	}
	if n.left == nil && n.right == nil {
		// stub left by restore or pruning, its stored hash stands
		n.verified = true
		return
	}
	lh, rh := ZeroHash, ZeroHash
	if n.left != nil {
		t.computeTree(n.left)
		lh = n.left.hash
	}
	if n.right != nil {
		t.computeTree(n.right)
		rh = n.right.hash
	}
	n.hash = JoinHash(lh, rh)
	n.verified = true
}

// AddSignedMunro signs any outstanding peaks and returns the munro
// covering the newest epoch of nchunksPerSign contiguous leaves. Called
// by the transfer when an epoch completes; nchunksPerSign being a power
// of two makes that munro the last signed peak.
func (t *LiveHashTree) AddSignedMunro() (MunroTuple, error) {
	if _, err := t.UpdateSignedPeaks(); err != nil {
		return NoMunro, err
	}
	if len(t.signedPeaks) == 0 {
		return NoMunro, ErrPeakMissing
	}
	last := t.signedPeaks[len(t.signedPeaks)-1]
	return MunroTuple{
		Bin:       last.Bin,
		Hash:      t.Hash(last.Bin),
		Timestamp: last.Timestamp,
		Signature: last.Signature,
	}, nil
}

// InitFromCheckpoint installs a restored munro as the sole signed peak
// of a fresh source tree. Appends continue after its base range, so the
// checkpoint subtree ends up to the left under a growing new root whose
// older internal hashes remain serveable.
func (t *LiveHashTree) InitFromCheckpoint(tup MunroTuple) error {
	if t.signer == nil {
		return ErrNotSourceTree
	}
	if t.root != nil {
		return fmt.Errorf("%w: tree not empty", ErrNotSourceTree)
	}
	if tup.IsNone() {
		return ErrCheckpointFormat
	}

	n := newNode(tup.Bin)
	n.hash = tup.Hash
	n.verified = true
	t.root = n
	t.addcursor = n

	t.peaks = []bins.Bin{tup.Bin}
	t.signedPeaks = []SignedPeak{{Bin: tup.Bin, Signature: tup.Signature, Timestamp: tup.Timestamp}}
	t.sizec = tup.Bin.BaseRight().LayerOffset() + 1
	t.size = t.sizec * uint64(t.chunkSize)

	// The stream produced everything up to the checkpoint already, the
	// restart just cannot serve the bytes before the munro's subtree.
	for _, pb := range bins.Peaks(t.sizec) {
		t.ackOut.Set(pb)
	}

	return nil
}

// DeriveRoot combines all current peaks into the canonical root value by
// left padding missing siblings with the zero hash. Debugging and
// display only.
func (t *LiveHashTree) DeriveRoot() Hash {
	if len(t.peaks) == 0 {
		return ZeroHash
	}
	c := len(t.peaks) - 1
	p := t.peaks[c]
	h := t.Hash(p)
	c--
	for c >= 0 {
		if p.IsLeft() {
			h = JoinHash(h, ZeroHash)
			p = p.Parent()
		} else {
			if t.peaks[c] != p.Sibling() {
				return ZeroHash
			}
			h = JoinHash(t.Hash(t.peaks[c]), h)
			p = p.Parent()
			c--
		}
	}
	return h
}

/*
 * Accessors shared by both roles
 */

func (t *LiveHashTree) State() State { return t.state }

func (t *LiveHashTree) PeakCount() int { return len(t.peaks) }

func (t *LiveHashTree) Peak(i int) bins.Bin { return t.peaks[i] }

// PeakFor returns the current peak covering pos, or None.
func (t *LiveHashTree) PeakFor(pos bins.Bin) bins.Bin {
	return bins.PeakFor(t.peaks, pos)
}

func (t *LiveHashTree) SignedPeakCount() int { return len(t.signedPeaks) }

func (t *LiveHashTree) SignedPeak(i int) bins.Bin { return t.signedPeaks[i].Bin }

func (t *LiveHashTree) SignedPeakSig(i int) []byte { return t.signedPeaks[i].Signature }

// Hash returns the stored hash for pos, or the zero hash when the node
// is absent.
func (t *LiveHashTree) Hash(pos bins.Bin) Hash {
	n := t.findNode(pos)
	if n == nil {
		return ZeroHash
	}
	return n.hash
}

// RootHash returns the hash at the current root node, which is only
// meaningful once computed or verified.
func (t *LiveHashTree) RootHash() Hash {
	if t.root == nil {
		return ZeroHash
	}
	return t.root.hash
}

func (t *LiveHashTree) Size() uint64 { return t.size }

func (t *LiveHashTree) SizeInChunks() uint64 { return t.sizec }

func (t *LiveHashTree) Complete() uint64 { return t.complete }

func (t *LiveHashTree) ChunksComplete() uint64 { return t.completec }

func (t *LiveHashTree) ChunkSize() uint32 { return t.chunkSize }

// AckOut is the binmap of verified chunks.
func (t *LiveHashTree) AckOut() *binmaps.Binmap { return t.ackOut }

func (t *LiveHashTree) NChunksPerSign() uint32 { return t.nchunksPerSign }

// SetNChunksPerSign records the epoch width; a client learns it from the
// base length of the first verified munro.
func (t *LiveHashTree) SetNChunksPerSign(n uint32) { t.nchunksPerSign = n }

// findNode descends from the root by the in-order label ordering.
func (t *LiveHashTree) findNode(pos bins.Bin) *node {
	iter := t.root
	for iter != nil {
		if pos == iter.bin {
			return iter
		}
		if pos < iter.bin {
			iter = iter.left
		} else {
			iter = iter.right
		}
	}
	return nil
}
