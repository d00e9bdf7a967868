package live

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-livestream/bins"
	"github.com/forestrie/go-livestream/livetree"
)

func TestMain(m *testing.M) {
	logger.New("NOOP")
	code := m.Run()
	logger.OnExit()
	os.Exit(code)
}

type fakeChannel struct {
	id          uint32
	established bool
	isSource    bool
	sends       int
}

func (c *fakeChannel) ID() uint32          { return c.id }
func (c *fakeChannel) IsEstablished() bool { return c.established }
func (c *fakeChannel) PeerIsSource() bool  { return c.isSource }
func (c *fakeChannel) LiveSend()           { c.sends++ }

func testSwarmID() SwarmID {
	return NewPublicKeySwarmID([]byte("test swarm public key"))
}

// feed writes nchunks deterministic chunks through AddData one chunk at
// a time, the way a live read timer delivers them.
func feed(t *testing.T, lt *LiveTransfer, from, nchunks int) {
	t.Helper()
	for i := from; i < from+nchunks; i++ {
		data := make([]byte, lt.ChunkSize())
		for j := range data {
			data[j] = byte(i % 255)
		}
		require.NoError(t, lt.AddData(data))
	}
}

func TestSourceEpochSigning(t *testing.T) {
	lt, err := NewSource(livetree.StubSigner{}, testSwarmID(), &memStorage{},
		WithChunkSize(1024), WithChunksPerSign(4))
	require.NoError(t, err)

	established := &fakeChannel{id: 1, established: true}
	pending := &fakeChannel{id: 2}
	lt.AddChannel(established)
	lt.AddChannel(pending)

	// Three chunks: no complete epoch, nothing advertised, no HAVEs.
	feed(t, lt, 0, 3)
	assert.Equal(t, 0, lt.Tree().SignedPeakCount())
	assert.True(t, lt.AckOutSigned().IsEmpty(bins.Base(0)))
	assert.Equal(t, 0, established.sends)

	// The fourth chunk completes the epoch: munro signed, HAVE tick on
	// established channels only, chunks advertisable.
	feed(t, lt, 3, 1)
	assert.Equal(t, 1, lt.Tree().SignedPeakCount())
	assert.Equal(t, bins.New(2, 0), lt.Tree().SignedPeak(0))
	assert.True(t, lt.AckOutSigned().IsFilled(bins.New(2, 0)))
	assert.Equal(t, 1, established.sends)
	assert.Equal(t, 0, pending.sends)

	feed(t, lt, 4, 4)
	assert.Equal(t, 1, lt.Tree().SignedPeakCount())
	assert.Equal(t, bins.New(3, 0), lt.Tree().SignedPeak(0))
	assert.Equal(t, 2, established.sends)

	assert.Equal(t, uint64(8*1024), lt.SeqComplete())
}

func TestSourceBatchedAddData(t *testing.T) {
	// A single large buffer is chunked internally and completes two
	// epochs at once.
	lt, err := NewSource(livetree.StubSigner{}, testSwarmID(), &memStorage{},
		WithChunkSize(16), WithChunksPerSign(4))
	require.NoError(t, err)

	ch := &fakeChannel{id: 1, established: true}
	lt.AddChannel(ch)

	buf := make([]byte, 8*16)
	require.NoError(t, lt.AddData(buf))

	assert.Equal(t, uint64(8), lt.Tree().SizeInChunks())
	assert.Equal(t, bins.New(3, 0), lt.Tree().SignedPeak(0))
	// Both epochs finished inside one call: one HAVE tick.
	assert.Equal(t, 1, ch.sends)
}

func TestSourceCheckpointRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.checkpoint")

	lt, err := NewSource(livetree.StubSigner{}, testSwarmID(), &memStorage{},
		WithChunkSize(1024), WithChunksPerSign(4), WithCheckpointFile(path))
	require.NoError(t, err)
	feed(t, lt, 0, 8)

	tup := livetree.ReadCheckpointFile(path)
	require.False(t, tup.IsNone())
	assert.Equal(t, bins.New(3, 0), tup.Bin)

	// Restart: generation continues after the checkpoint munro and the
	// old tree's bins are not advertised.
	lt2, err := NewSource(livetree.StubSigner{}, testSwarmID(), &memStorage{},
		WithChunkSize(1024), WithChunksPerSign(4), WithCheckpointFile(path))
	require.NoError(t, err)
	assert.Equal(t, uint64(8), lt2.Tree().SizeInChunks())
	assert.Equal(t, uint64(8*1024), lt2.SeqComplete())

	feed(t, lt2, 8, 4)
	assert.Equal(t, uint64(12), lt2.Tree().SizeInChunks())
	assert.True(t, lt2.AckOutSigned().IsFilled(bins.New(2, 2)))
	assert.True(t, lt2.AckOutSigned().IsEmpty(bins.Base(0)))
	assert.True(t, lt2.AckOutSigned().IsEmpty(bins.Base(7)))
}

func TestSourcePruneOutsideDiscardWindow(t *testing.T) {
	lt, err := NewSource(livetree.StubSigner{}, testSwarmID(), &memStorage{},
		WithChunkSize(64), WithChunksPerSign(4), WithDiscardWindow(8))
	require.NoError(t, err)

	feed(t, lt, 0, 24)
	tree := lt.Tree()

	// The oldest epochs are gone from the tree.
	assert.True(t, tree.Hash(bins.Base(0)).IsZero())
	assert.True(t, tree.Hash(bins.New(1, 0)).IsZero())
	// Pruned subtree roots keep serving their hashes as uncles.
	assert.False(t, tree.Hash(bins.New(4, 0)).IsZero())
	// Chunks inside the window survive.
	assert.False(t, tree.Hash(bins.Base(23)).IsZero())
	assert.False(t, tree.Hash(bins.Base(16)).IsZero())
}

func TestSourceStorageFailureBreaks(t *testing.T) {
	lt, err := NewSource(livetree.StubSigner{}, testSwarmID(), failStorage{},
		WithChunkSize(8), WithChunksPerSign(1))
	require.NoError(t, err)

	err = lt.AddData(make([]byte, 8))
	assert.ErrorIs(t, err, ErrStorageWrite)

	// The source must stop accepting input after a write failure.
	assert.ErrorIs(t, lt.AddData(make([]byte, 8)), ErrTransferBroken)
}

type failStorage struct{}

func (failStorage) Write(p []byte, off int64) (int, error) {
	return 0, errors.New("disk full")
}

func TestSourceProtectionNone(t *testing.T) {
	lt, err := NewSource(nil, testSwarmID(), &memStorage{},
		WithChunkSize(32), WithProtectionMethod(ProtectionNone))
	require.NoError(t, err)

	ch := &fakeChannel{id: 1, established: true}
	lt.AddChannel(ch)

	require.NoError(t, lt.AddData(make([]byte, 32)))
	require.NoError(t, lt.AddData(make([]byte, 32)))

	assert.Nil(t, lt.Tree())
	// Treeless swarms advertise every generated chunk immediately.
	assert.True(t, lt.AckOutSigned().IsFilled(bins.New(1, 0)))
	assert.Equal(t, 2, ch.sends)
}

func TestSourceChunksPerSignMustBePow2(t *testing.T) {
	_, err := NewSource(livetree.StubSigner{}, testSwarmID(), &memStorage{},
		WithChunksPerSign(6))
	assert.ErrorIs(t, err, ErrChunksPerSignPow2)
}
