// Package binmaps provides a dense set of binary-tree positions keyed by
// the bins package numbering. Setting a bin fills its whole base range,
// and a parent bin reads as filled exactly when both of its children do,
// so full subtrees roll up without being stored explicitly.
package binmaps

import (
	"sort"

	"github.com/forestrie/go-livestream/bins"
)

// span is an inclusive run [lo, hi] of filled base-layer offsets.
type span struct {
	lo, hi uint64
}

// Binmap records which base-layer bins are filled. The zero value is an
// empty map ready for use. Runs of filled chunks are coalesced, so a
// live stream with few holes stays small no matter how many chunks have
// passed.
type Binmap struct {
	spans []span
}

func New() *Binmap { return &Binmap{} }

// Set fills every base bin covered by b.
func (m *Binmap) Set(b bins.Bin) {
	if b.IsNone() {
		return
	}
	lo := b.BaseOffset()
	hi := lo + b.BaseLength() - 1
	m.insert(span{lo, hi})
}

// Reset clears every base bin covered by b.
func (m *Binmap) Reset(b bins.Bin) {
	if b.IsNone() {
		return
	}
	lo := b.BaseOffset()
	hi := lo + b.BaseLength() - 1

	var out []span
	for _, s := range m.spans {
		if s.hi < lo || s.lo > hi {
			out = append(out, s)
			continue
		}
		if s.lo < lo {
			out = append(out, span{s.lo, lo - 1})
		}
		if s.hi > hi {
			out = append(out, span{hi + 1, s.hi})
		}
	}
	m.spans = out
}

// Clear empties the map.
func (m *Binmap) Clear() { m.spans = nil }

// IsFilled reports whether every base bin covered by b is filled.
func (m *Binmap) IsFilled(b bins.Bin) bool {
	if b.IsNone() {
		return false
	}
	lo := b.BaseOffset()
	hi := lo + b.BaseLength() - 1
	// Coalescing guarantees a fully filled range lies in a single span.
	for _, s := range m.spans {
		if s.lo <= lo && hi <= s.hi {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no base bin covered by b is filled. With no
// argument semantics of its own, IsEmpty(parent) false does not imply
// IsFilled(parent); the subtree may be part filled.
func (m *Binmap) IsEmpty(b bins.Bin) bool {
	if b.IsNone() {
		return true
	}
	lo := b.BaseOffset()
	hi := lo + b.BaseLength() - 1
	for _, s := range m.spans {
		if s.hi >= lo && s.lo <= hi {
			return false
		}
	}
	return true
}

// FindFilled returns the lowest filled base bin, or None when the map is
// empty.
func (m *Binmap) FindFilled() bins.Bin {
	if len(m.spans) == 0 {
		return bins.None
	}
	return bins.Base(m.spans[0].lo)
}

// FindEmpty returns the lowest empty base bin.
func (m *Binmap) FindEmpty() bins.Bin {
	return m.FindEmptyAfter(bins.Base(0))
}

// FindEmptyAfter returns the lowest empty base bin at or after from.
func (m *Binmap) FindEmptyAfter(from bins.Bin) bins.Bin {
	at := from.BaseOffset()
	for _, s := range m.spans {
		if s.hi < at {
			continue
		}
		if s.lo > at {
			break
		}
		at = s.hi + 1
	}
	return bins.Base(at)
}

// insert merges the new span into the ordered, disjoint span list.
func (m *Binmap) insert(n span) {
	i := sort.Search(len(m.spans), func(i int) bool {
		return m.spans[i].hi+1 >= n.lo
	})
	j := i
	for j < len(m.spans) && m.spans[j].lo <= n.hi+1 {
		if m.spans[j].lo < n.lo {
			n.lo = m.spans[j].lo
		}
		if m.spans[j].hi > n.hi {
			n.hi = m.spans[j].hi
		}
		j++
	}
	out := make([]span, 0, len(m.spans)-(j-i)+1)
	out = append(out, m.spans[:i]...)
	out = append(out, n)
	out = append(out, m.spans[j:]...)
	m.spans = out
}
