package livetree

import (
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-livestream/bins"
)

/*
 * Live client specific
 */

// OfferHash submits a hash received from a peer. When no signed peak
// covers pos yet the hash is cached as the candidate peak and false is
// returned; otherwise the node is found or created and the hash stored.
// The return value is true only when the hash verified against already
// accepted state.
func (t *LiveHashTree) OfferHash(pos bins.Bin, h Hash) bool {
	peak := bins.PeakFor(t.peaks, pos)
	if peak.IsNone() {
		t.candBin = pos
		t.candHash = h
		return false
	}
	return t.createAndVerifyNode(pos, h, false)
}

// OfferSignedPeakHash accepts a munro: the candidate peak hash cached by
// OfferHash together with a signature over it. A bad signature fails the
// message without mutating the tree. On success the peak set is updated,
// replacing any peaks the new one subsumes, and the tree leaves
// AwaitPeak.
func (t *LiveHashTree) OfferSignedPeakHash(pos bins.Bin, signature []byte) error {
	if t.verifier == nil {
		return ErrNotClientTree
	}
	if t.candBin != pos {
		return fmt.Errorf("%w: candidate %s, munro %s", ErrMunroMixup, t.candBin, pos)
	}
	if err := t.verifier.Verify(munroContent(pos, t.candHash), signature); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	// The new peak replaces every existing peak it contains; an equal
	// peak is kept; otherwise it is appended.
	stored := false
	peaks := make([]bins.Bin, 0, len(t.peaks)+1)
	signed := make([]SignedPeak, 0, len(t.signedPeaks)+1)
	for i, pb := range t.peaks {
		if pos.Contains(pb) {
			if !stored {
				peaks = append(peaks, pos)
				signed = append(signed, SignedPeak{Bin: pos, Signature: signature})
				stored = true
			}
			continue
		}
		peaks = append(peaks, pb)
		signed = append(signed, t.signedPeaks[i])
	}
	if !stored {
		peaks = append(peaks, pos)
		signed = append(signed, SignedPeak{Bin: pos, Signature: signature})
	}
	t.peaks = peaks
	t.signedPeaks = signed

	t.sizec = t.peaks[len(t.peaks)-1].BaseRight().LayerOffset() + 1
	t.size = t.sizec * uint64(t.chunkSize)

	if t.state == StateAwaitPeak {
		t.state = StateAwaitData
	}

	t.createAndVerifyNode(pos, t.candHash, true)
	t.candBin = bins.None
	t.candHash = ZeroHash
	return nil
}

// OfferData accepts chunk bytes for a base bin already covered by a
// signed peak. The leaf hash is submitted via OfferHash and the uncle
// walk must reach the covering peak; an incomplete or mismatching proof
// rejects the chunk without acking it.
func (t *LiveHashTree) OfferData(pos bins.Bin, data []byte) error {
	if t.verifier == nil {
		return ErrNotClientTree
	}
	if t.state == StateAwaitPeak {
		return ErrAwaitingMunro
	}
	if !pos.IsBase() {
		return fmt.Errorf("%w: %s", ErrNotBaseBin, pos)
	}
	if uint64(len(data)) < uint64(t.chunkSize) && pos != bins.Base(t.sizec-1) {
		return fmt.Errorf("%w: %d bytes at %s", ErrBadChunkSize, len(data), pos)
	}
	if t.ackOut.IsFilled(pos) {
		return nil
	}
	peak := bins.PeakFor(t.peaks, pos)
	if peak.IsNone() {
		return fmt.Errorf("%w: %s", ErrNoCoveringPeak, pos)
	}

	if !t.OfferHash(pos, HashChunk(data)) {
		return fmt.Errorf("%w: %s", ErrHashMismatch, pos)
	}

	t.ackOut.Set(pos)
	t.complete += uint64(len(data))
	t.completec++
	return nil
}

// createAndVerifyNode finds or creates the node for pos, growing the
// tree upward when pos falls outside the current root's subtree, stores
// the hash, and for base bins walks toward the covering peak combining
// sibling hashes. On a successful walk every node on the uncle path and
// the direct path is marked verified so shared path prefixes are not
// re-verified for later chunks.
func (t *LiveHashTree) createAndVerifyNode(pos bins.Bin, h Hash, verified bool) bool {
	iter := t.root
	var parent *node
	for {
		if iter == nil {
			if parent == nil {
				t.root = newNode(pos)
				t.root.hash = h
				t.root.verified = verified
				return false
			}
			// Create the missing child on the side pos lies.
			if pos < parent.bin {
				n := newNode(parent.bin.Left())
				parent.attachLeft(n)
				iter = n
			} else {
				n := newNode(parent.bin.Right())
				parent.attachRight(n)
				iter = n
			}
		} else if !iter.bin.Contains(pos) {
			// pos is outside the root's subtree: splice a new root one
			// layer up and keep climbing until it covers pos.
			newroot := newNode(iter.bin.Parent())
			if iter.bin.IsLeft() {
				newroot.attachLeft(iter)
			} else {
				newroot.attachRight(iter)
			}
			t.root = newroot
			iter = newroot
		}

		if pos == iter.bin {
			break
		}
		parent = iter
		if pos < iter.bin {
			iter = iter.left
		} else {
			iter = iter.right
		}
	}

	if t.state == StateAwaitPeak {
		return false
	}

	peak := bins.PeakFor(t.peaks, pos)
	if peak.IsNone() {
		return false
	}
	if peak == pos {
		if verified {
			iter.hash = h
			iter.verified = true
		}
		return h == iter.hash
	}
	if !t.ackOut.IsEmpty(pos.Parent()) {
		// have this hash already, even accepted data
		return h == iter.hash
	}
	if iter.verified {
		// already checked against a munro, don't replace
		return h == iter.hash
	}

	iter.hash = h

	if !pos.IsBase() {
		return false
	}

	// Walk to the nearest proven hash.
	piter := iter
	uphash := h
	for piter.bin != peak && t.ackOut.IsEmpty(piter.bin) && !piter.verified {
		piter.hash = uphash
		piter = piter.parent
		if piter.left == nil || piter.right == nil {
			return false
		}
		// A zero hash on either side means the uncle has not arrived;
		// combining would poison the walk.
		if piter.left.hash.IsZero() || piter.right.hash.IsZero() {
			break
		}
		uphash = JoinHash(piter.left.hash, piter.right.hash)
	}

	success := uphash == piter.hash
	if success {
		logger.Sugar.Debugf("livetree: verified %s up to %s", pos, piter.bin)
		// Mark the uncle path and the direct path so later chunks that
		// share these nodes stop their walk early.
		n := iter
		n.verified = true
		for n.bin != peak {
			if sib := n.sibling(); sib != nil {
				sib.verified = true
			}
			n = n.parent
			n.verified = true
		}
	}
	return success
}
