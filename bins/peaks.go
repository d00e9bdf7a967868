package bins

import "math/bits"

// Peaks returns the bins of the maximal complete subtrees covering a
// stream of n chunks, highest peak first. This is completely
// deterministic given n: there is one peak per set bit of n, and each
// peak's base length is the corresponding power of two.
//
// So for n = 11 the peaks are (3,0), (1,4) and (0,10):
//
//	3        (3,0)
//	        /     \
//	2      .       .
//	      / \     / \
//	1    .   .   .   .   (1,4)
//	    /\   /\ /\   /\   / \
//	0  0  1 2 3 4  5 6 7 8   9  (0,10)
//
// For n = 0 there are no peaks and the result is nil.
func Peaks(n uint64) []Bin {
	if n == 0 {
		return nil
	}
	peaks := make([]Bin, 0, bits.OnesCount64(n))
	var offset uint64
	for h := Log2Uint64(n); ; h-- {
		if n&(1<<h) != 0 {
			peaks = append(peaks, New(h, offset>>h))
			offset += 1 << h
		}
		if h == 0 {
			break
		}
	}
	return peaks
}

// PeakCount returns the number of peaks for a stream of n chunks, which
// is the number of set bits in n.
func PeakCount(n uint64) int {
	return bits.OnesCount64(n)
}

// PeakFor returns the first of the given peaks whose subtree includes
// pos, or None when no peak covers it.
func PeakFor(peaks []Bin, pos Bin) Bin {
	for _, p := range peaks {
		if p.Contains(pos) {
			return p
		}
	}
	return None
}
