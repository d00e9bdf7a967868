package live

import (
	"fmt"

	"github.com/forestrie/go-livestream/binmaps"
	"github.com/forestrie/go-livestream/bins"
	"github.com/forestrie/go-livestream/livetree"
)

// NewSource creates the source side of a live swarm. With UNIFIED_MERKLE
// protection and a configured checkpoint file, a munro persisted by a
// previous run is restored: it becomes the sole signed peak of the new
// tree and chunk generation continues after its base range.
func NewSource(signer livetree.Signer, swarmID SwarmID, storage Storage, opts ...Option) (*LiveTransfer, error) {
	o := applyOptions(opts)

	if o.Protection == ProtectionUnifiedMerkle {
		if signer == nil {
			return nil, ErrSignerRequired
		}
		if !bins.IsPow2(uint64(o.NChunksPerSign)) {
			return nil, fmt.Errorf("%w: %d", ErrChunksPerSignPow2, o.NChunksPerSign)
		}
	}

	t := &LiveTransfer{
		log:                o.Log,
		swarmID:            swarmID,
		chunkSize:          o.ChunkSize,
		cipm:               o.Protection,
		discWnd:            o.DiscardWindow,
		storage:            storage,
		ackOut:             binmaps.New(),
		signedAckOut:       binmaps.New(),
		source:             true,
		nchunksPerSign:     o.NChunksPerSign,
		checkpointPath:     o.CheckpointPath,
		checkpointBin:      bins.None,
		ackOutRightBasebin: bins.None,
	}

	if o.Protection != ProtectionUnifiedMerkle {
		return t, nil
	}

	t.tree = livetree.NewSourceTree(signer, o.ChunkSize, o.NChunksPerSign)

	if o.CheckpointPath != "" {
		tup := livetree.ReadCheckpointFile(o.CheckpointPath)
		if !tup.IsNone() {
			if err := t.tree.InitFromCheckpoint(tup); err != nil {
				return nil, err
			}
			t.checkpointBin = tup.Bin
			t.lastChunkID = tup.Bin.BaseRight().LayerOffset() + 1
			t.byteOffset = t.lastChunkID * uint64(t.chunkSize)
			t.updateSignedAckOut()
			t.log.Infof("live: source: restored last chunk id %d from checkpoint %s",
				t.lastChunkID, tup.Bin)
		}
	}

	return t, nil
}

// AddData admits raw stream bytes at the source: they are written to
// storage, chunked and appended to the tree. Each time an epoch of
// nchunksPerSign chunks completes it is covered by a freshly signed
// munro, checkpointed, advertised, and balanced by pruning whatever
// subtree fell wholly outside the discard window.
func (t *LiveTransfer) AddData(buf []byte) error {
	if !t.source {
		return ErrNotSource
	}
	if t.broken {
		return ErrTransferBroken
	}

	if _, err := t.storage.Write(buf, int64(t.byteOffset)); err != nil {
		// The chunk ids already announced must stay truthful, so a
		// failed write stops the transfer for good.
		t.broken = true
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	chunkSize := uint64(t.chunkSize)
	till := uint64(len(buf)) / chunkSize
	if till == 0 {
		till = 1
	}

	newEpoch := false
	for c := uint64(0); c < till; c++ {
		chunkBin := bins.Base(t.lastChunkID)
		t.ackOut.Set(chunkBin)
		t.lastChunkID++
		t.byteOffset += chunkSize
		chunksAppended.Inc()

		if t.cipm != ProtectionUnifiedMerkle {
			newEpoch = true
			continue
		}

		start := c * chunkSize
		end := start + chunkSize
		if end > uint64(len(buf)) {
			end = uint64(len(buf))
		}
		t.tree.AddData(buf[start:end])

		t.chunksSinceSign++
		if t.chunksSinceSign < t.nchunksPerSign {
			continue
		}

		tup, err := t.tree.AddSignedMunro()
		if err != nil {
			return err
		}
		munrosSigned.Inc()
		if t.checkpointPath != "" {
			if err := livetree.WriteCheckpointFile(t.checkpointPath, tup); err != nil {
				t.log.Infof("live: could not write checkpoint %s: %v", t.checkpointPath, err)
			}
		}

		t.chunksSinceSign = 0
		newEpoch = true

		// HAVEs may only cover chunks under a signed peak; at this
		// point peaks and signed peaks coincide.
		t.updateSignedAckOut()

		if t.discWnd != DiscardWindowAll {
			t.onDataPruneTree(bins.Base(t.lastChunkID))
		}
	}

	t.log.Debugf("live: AddData: added till chunk id %d", t.lastChunkID)

	if newEpoch {
		t.announceEpoch()
	}
	return nil
}

// updateSignedAckOut rebuilds the advertisable set from the signed
// peaks, then clears every bin of a restored checkpoint's layer up to
// and including its offset so old-tree chunks are not advertised.
func (t *LiveTransfer) updateSignedAckOut() {
	t.signedAckOut.Clear()
	for i := 0; i < t.tree.PeakCount(); i++ {
		t.signedAckOut.Set(t.tree.Peak(i))
	}
	if t.checkpointBin.IsNone() {
		return
	}
	for i := uint64(0); i <= t.checkpointBin.LayerOffset(); i++ {
		t.signedAckOut.Reset(bins.New(t.checkpointBin.Layer(), i))
	}
}

// onDataPruneTree forgets the largest subtree that fell entirely to the
// left of the discard window, aligned down to the epoch width. Pruning
// only happens when the right edge of generated chunks advances, and
// never touches an ancestor of a currently signed peak.
func (t *LiveTransfer) onDataPruneTree(pos bins.Bin) {
	if t.nchunksPerSign < 1 {
		return
	}

	if t.ackOutRightBasebin.IsNone() || pos > t.ackOutRightBasebin {
		t.ackOutRightBasebin = pos
	} else {
		return
	}

	right := t.ackOutRightBasebin.LayerOffset()
	oldcid := int64(right) - int64(t.discWnd)
	if oldcid <= 0 {
		return
	}

	extra := uint64(oldcid) % uint64(t.nchunksPerSign)
	startcid := uint64(oldcid) - extra
	leftcid := int64(startcid) - int64(t.nchunksPerSign)
	if leftcid < 0 {
		return
	}

	leftpos := bins.Base(uint64(leftcid))
	for h := uint64(0); h < bins.Log2Uint64(uint64(t.nchunksPerSign)); h++ {
		leftpos = leftpos.Parent()
	}
	// Keep climbing while the subtree stays wholly left of the window.
	for leftpos.IsRight() {
		leftpos = leftpos.Parent()
	}

	if err := t.tree.PruneTree(leftpos); err != nil {
		t.log.Debugf("live: prune %s: %v", leftpos, err)
		return
	}
	treePrunes.Inc()
	t.log.Debugf("live: pruned %s, window %d, right edge %d", leftpos, t.discWnd, right)
}
