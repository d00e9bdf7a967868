package livetree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-livestream/bins"
)

// buildRefTree computes the full reference hash tree over nchunks test
// chunks, padding the base layer with zero hashes up to the enclosing
// power of two, and returns the hash map plus the chunk bytes.
func buildRefTree(nchunks int) (map[bins.Bin]Hash, [][]byte) {
	chunks := make([][]byte, nchunks)
	hmap := map[bins.Bin]Hash{}
	for i := 0; i < nchunks; i++ {
		chunks[i] = testChunk(i)
		hmap[bins.Base(uint64(i))] = HashChunk(chunks[i])
	}

	width := 1
	height := 0
	for width < nchunks {
		width *= 2
		height++
	}
	for i := nchunks; i < width; i++ {
		hmap[bins.Base(uint64(i))] = ZeroHash
	}
	for h := 1; h <= height; h++ {
		for i := 0; i < width>>h; i++ {
			b := bins.New(uint64(h), uint64(i))
			hmap[b] = JoinHash(hmap[b.Left()], hmap[b.Right()])
		}
	}
	return hmap, chunks
}

// offerMunros feeds the peaks of an nchunks stream as signed munros: the
// peak hash first (cached as the candidate), then the stub signature.
func offerMunros(t *testing.T, umt *LiveHashTree, nchunks int, hmap map[bins.Bin]Hash) {
	t.Helper()
	for _, pb := range bins.Peaks(uint64(nchunks)) {
		assert.False(t, umt.OfferHash(pb, hmap[pb]))
		sig := stubSignature(munroContent(pb, hmap[pb]))
		require.NoError(t, umt.OfferSignedPeakHash(pb, sig))
		saneTree(t, umt)
	}
}

// uncles returns the sibling path from pos up to peak, peak-side first,
// the order a serving peer sends them.
func uncles(pos, peak bins.Bin) []bins.Bin {
	var bv []bins.Bin
	for pos != peak {
		bv = append(bv, pos.Sibling())
		pos = pos.Parent()
	}
	for i, j := 0, len(bv)-1; i < j; i, j = i+1, j-1 {
		bv[i], bv[j] = bv[j], bv[i]
	}
	return bv
}

// doDownload delivers the chunks in the given order, each preceded by
// its uncle hashes, and requires every chunk to verify.
func doDownload(t *testing.T, umt *LiveHashTree, order []int, hmap map[bins.Bin]Hash, chunks [][]byte) {
	t.Helper()
	for _, c := range order {
		pos := bins.Base(uint64(c))
		peak := umt.PeakFor(pos)
		require.False(t, peak.IsNone(), "no peak for chunk %d", c)

		for _, u := range uncles(pos, peak) {
			umt.OfferHash(u, hmap[u])
			saneTree(t, umt)
		}
		require.NoError(t, umt.OfferData(pos, chunks[c]), "chunk %d", c)
		saneTree(t, umt)
	}
}

func inOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func reversed(n int) []int {
	order := inOrder(n)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func TestDownload8(t *testing.T) {
	hmap, chunks := buildRefTree(8)
	umt := NewClientTree(StubVerifier{}, testChunkSize)
	assert.Equal(t, StateAwaitPeak, umt.State())

	offerMunros(t, umt, 8, hmap)
	assert.Equal(t, StateAwaitData, umt.State())
	doDownload(t, umt, inOrder(8), hmap, chunks)

	assert.Equal(t, 1, umt.PeakCount())
	assert.Equal(t, bins.New(3, 0), umt.Peak(0))
	assert.Equal(t, uint64(8), umt.ChunksComplete())
}

func TestDownload11Reverse(t *testing.T) {
	hmap, chunks := buildRefTree(11)
	umt := NewClientTree(StubVerifier{}, testChunkSize)

	offerMunros(t, umt, 11, hmap)
	doDownload(t, umt, reversed(11), hmap, chunks)

	require.Equal(t, 3, umt.PeakCount())
	assert.Equal(t, bins.New(3, 0), umt.Peak(0))
	assert.Equal(t, bins.New(1, 4), umt.Peak(1))
	assert.Equal(t, bins.New(0, 10), umt.Peak(2))
	assert.Equal(t, uint64(11), umt.ChunksComplete())
}

func TestDownloadRandomOrder(t *testing.T) {
	// Reconstruction is picker-order invariant: any permutation of the
	// same chunk set yields the same peaks and completeness.
	rng := rand.New(rand.NewSource(42))
	for n := 1; n <= 16; n++ {
		hmap, chunks := buildRefTree(n)
		umt := NewClientTree(StubVerifier{}, testChunkSize)

		offerMunros(t, umt, n, hmap)
		doDownload(t, umt, rng.Perm(n), hmap, chunks)

		want := bins.Peaks(uint64(n))
		require.Equal(t, len(want), umt.PeakCount(), "n=%d", n)
		for i, pb := range want {
			require.Equal(t, pb, umt.Peak(i), "n=%d", n)
		}
		require.Equal(t, uint64(n), umt.ChunksComplete(), "n=%d", n)
	}
}

func TestOfferSignedPeakSubsumes(t *testing.T) {
	// A growing stream: the client first learns the (2,0) munro, then a
	// later (3,0) munro that subsumes it.
	hmap, chunks := buildRefTree(8)
	umt := NewClientTree(StubVerifier{}, testChunkSize)

	umt.OfferHash(bins.New(2, 0), hmap[bins.New(2, 0)])
	sig := stubSignature(munroContent(bins.New(2, 0), hmap[bins.New(2, 0)]))
	require.NoError(t, umt.OfferSignedPeakHash(bins.New(2, 0), sig))
	assert.Equal(t, uint64(4), umt.SizeInChunks())
	doDownload(t, umt, inOrder(4), hmap, chunks)

	umt.OfferHash(bins.New(3, 0), hmap[bins.New(3, 0)])
	sig = stubSignature(munroContent(bins.New(3, 0), hmap[bins.New(3, 0)]))
	require.NoError(t, umt.OfferSignedPeakHash(bins.New(3, 0), sig))

	require.Equal(t, 1, umt.PeakCount())
	assert.Equal(t, bins.New(3, 0), umt.Peak(0))
	assert.Equal(t, bins.New(3, 0), umt.SignedPeak(0))
	assert.Equal(t, uint64(8), umt.SizeInChunks())

	doDownload(t, umt, []int{4, 5, 6, 7}, hmap, chunks)
	assert.Equal(t, uint64(8), umt.ChunksComplete())
}

func TestOfferSignedPeakBadSignature(t *testing.T) {
	hmap, _ := buildRefTree(8)
	umt := NewClientTree(StubVerifier{}, testChunkSize)

	pb := bins.New(3, 0)
	umt.OfferHash(pb, hmap[pb])
	err := umt.OfferSignedPeakHash(pb, make([]byte, ES256SignatureLength))
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	// The failed message must not mutate the tree.
	assert.Equal(t, 0, umt.PeakCount())
	assert.Equal(t, StateAwaitPeak, umt.State())
}

func TestOfferSignedPeakMixup(t *testing.T) {
	hmap, _ := buildRefTree(8)
	umt := NewClientTree(StubVerifier{}, testChunkSize)

	umt.OfferHash(bins.New(2, 0), hmap[bins.New(2, 0)])
	sig := stubSignature(munroContent(bins.New(3, 0), hmap[bins.New(3, 0)]))
	assert.ErrorIs(t, umt.OfferSignedPeakHash(bins.New(3, 0), sig), ErrMunroMixup)
}

func TestOfferDataRejections(t *testing.T) {
	hmap, chunks := buildRefTree(8)
	umt := NewClientTree(StubVerifier{}, testChunkSize)

	// Before any signed munro all data is rejected.
	assert.ErrorIs(t, umt.OfferData(bins.Base(0), chunks[0]), ErrAwaitingMunro)

	offerMunros(t, umt, 8, hmap)

	assert.ErrorIs(t, umt.OfferData(bins.New(1, 0), chunks[0]), ErrNotBaseBin)
	assert.ErrorIs(t, umt.OfferData(bins.Base(0), chunks[0][:10]), ErrBadChunkSize)
	assert.ErrorIs(t, umt.OfferData(bins.Base(12), chunks[0]), ErrNoCoveringPeak)

	// A chunk whose proof cannot reach the peak is rejected and not
	// acked.
	assert.ErrorIs(t, umt.OfferData(bins.Base(0), chunks[0]), ErrHashMismatch)
	assert.True(t, umt.AckOut().IsEmpty(bins.Base(0)))

	// With the uncles present the same chunk verifies; re-offers are
	// accepted without double counting.
	for _, u := range uncles(bins.Base(0), bins.New(3, 0)) {
		umt.OfferHash(u, hmap[u])
	}
	require.NoError(t, umt.OfferData(bins.Base(0), chunks[0]))
	require.NoError(t, umt.OfferData(bins.Base(0), chunks[0]))
	assert.Equal(t, uint64(1), umt.ChunksComplete())
}

func TestOfferDataCorruptChunk(t *testing.T) {
	hmap, chunks := buildRefTree(4)
	umt := NewClientTree(StubVerifier{}, testChunkSize)
	offerMunros(t, umt, 4, hmap)

	bad := make([]byte, testChunkSize)
	copy(bad, chunks[0])
	bad[0] ^= 1
	for _, u := range uncles(bins.Base(0), bins.New(2, 0)) {
		umt.OfferHash(u, hmap[u])
	}
	assert.ErrorIs(t, umt.OfferData(bins.Base(0), bad), ErrHashMismatch)
	assert.True(t, umt.AckOut().IsEmpty(bins.Base(0)))

	// The genuine chunk still verifies afterwards.
	require.NoError(t, umt.OfferData(bins.Base(0), chunks[0]))
}

func TestOfferHashCandidate(t *testing.T) {
	hmap, _ := buildRefTree(8)
	umt := NewClientTree(StubVerifier{}, testChunkSize)

	// With no covering peak the hash is cached, not stored in the tree.
	assert.False(t, umt.OfferHash(bins.New(3, 0), hmap[bins.New(3, 0)]))
	assert.Equal(t, bins.New(3, 0), umt.candBin)
	assert.Nil(t, umt.root)
}
