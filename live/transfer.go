package live

import (
	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-livestream/binmaps"
	"github.com/forestrie/go-livestream/bins"
	"github.com/forestrie/go-livestream/livetree"
)

// LiveTransfer is one live swarm membership, in either the source or
// the client role. All methods are called from the single event loop
// task; there is no internal locking.
type LiveTransfer struct {
	log logger.Logger

	swarmID   SwarmID
	chunkSize uint32
	cipm      ProtectionMethod
	discWnd   uint64

	storage Storage
	tree    *livetree.LiveHashTree

	// ackOut backs chunk tracking when no tree is in play (cipm NONE).
	ackOut *binmaps.Binmap
	// signedAckOut is the source's advertisable set: chunks covered by
	// a signed munro, minus any restored old-tree bins.
	signedAckOut *binmaps.Binmap

	channels []Channel

	lastChunkID uint64
	byteOffset  uint64

	source bool
	broken bool

	// source role
	nchunksPerSign     uint32
	chunksSinceSign    uint32
	checkpointPath     string
	checkpointBin      bins.Bin
	ackOutRightBasebin bins.Bin

	// client role
	picker LivePiecePicker
}

func applyOptions(opts []Option) TransferOptions {
	o := TransferOptions{
		ChunkSize:      DefaultChunkSize,
		DiscardWindow:  DiscardWindowAll,
		NChunksPerSign: 1,
		Protection:     ProtectionUnifiedMerkle,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Log == nil {
		o.Log = logger.Sugar.WithServiceName("livestream")
	}
	return o
}

func (t *LiveTransfer) SwarmID() SwarmID { return t.swarmID }

func (t *LiveTransfer) ChunkSize() uint32 { return t.chunkSize }

func (t *LiveTransfer) IsSource() bool { return t.source }

func (t *LiveTransfer) ProtectionMethod() ProtectionMethod { return t.cipm }

func (t *LiveTransfer) DiscardWindow() uint64 { return t.discWnd }

// Tree exposes the hash tree to the channel layer for serving hashes
// and munro signatures. Nil when cipm is not UNIFIED_MERKLE.
func (t *LiveTransfer) Tree() *livetree.LiveHashTree { return t.tree }

func (t *LiveTransfer) Storage() Storage { return t.storage }

// AckOut is the binmap of chunks present: generated at the source,
// verified at a client.
func (t *LiveTransfer) AckOut() *binmaps.Binmap {
	if t.cipm == ProtectionUnifiedMerkle {
		return t.tree.AckOut()
	}
	return t.ackOut
}

// AckOutSigned is the advertisable binmap: HAVEs may only cover chunks
// under a signed munro, so the source advertises signedAckOut rather
// than everything generated.
func (t *LiveTransfer) AckOutSigned() *binmaps.Binmap {
	if !t.source || t.tree == nil {
		return t.AckOut()
	}
	return t.signedAckOut
}

func (t *LiveTransfer) AddChannel(c Channel) {
	t.channels = append(t.channels, c)
}

func (t *LiveTransfer) RemoveChannel(id uint32) {
	for i, c := range t.channels {
		if c.ID() == id {
			t.channels = append(t.channels[:i], t.channels[i+1:]...)
			return
		}
	}
}

func (t *LiveTransfer) ChannelCount() int { return len(t.channels) }

// SeqComplete returns sequential progress in bytes: from chunk zero at
// the source, from the hook-in position at a client.
func (t *LiveTransfer) SeqComplete() uint64 {
	if t.source {
		return t.AckOut().FindEmpty().BaseOffset() * uint64(t.chunkSize)
	}
	hpos := t.picker.HookinPos()
	cpos := t.picker.CurrentPos()
	if hpos.IsNone() || cpos.IsNone() {
		return 0
	}
	return (cpos.LayerOffset() - hpos.LayerOffset()) * uint64(t.chunkSize)
}

// HookinOffset returns the stream byte offset of the client's hook-in
// position.
func (t *LiveTransfer) HookinOffset() uint64 {
	if t.source {
		return 0
	}
	hpos := t.picker.HookinPos()
	if hpos.IsNone() {
		return 0
	}
	return hpos.LayerOffset() * uint64(t.chunkSize)
}

// announceEpoch sends a HAVE tick to every established channel. The
// iteration order is the stable channel insertion order; a HAVE is
// never sent before its covering munro was signed.
func (t *LiveTransfer) announceEpoch() {
	for _, c := range t.channels {
		if c.IsEstablished() {
			c.LiveSend()
		}
	}
}
