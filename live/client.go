package live

import (
	"fmt"

	"github.com/forestrie/go-livestream/binmaps"
	"github.com/forestrie/go-livestream/bins"
	"github.com/forestrie/go-livestream/livetree"
)

// NewClient creates the client side of a live swarm. The client starts
// with no knowledge of the stream position; it hooks in at the first
// verified munro a peer presents.
func NewClient(verifier livetree.Verifier, swarmID SwarmID, storage Storage, opts ...Option) (*LiveTransfer, error) {
	o := applyOptions(opts)

	if o.Protection == ProtectionUnifiedMerkle && verifier == nil {
		return nil, ErrVerifierRequired
	}

	picker := o.Picker
	if picker == nil {
		picker = NewSharingLivePicker()
	}

	t := &LiveTransfer{
		log:           o.Log,
		swarmID:       swarmID,
		chunkSize:     o.ChunkSize,
		cipm:          o.Protection,
		discWnd:       o.DiscardWindow,
		storage:       storage,
		ackOut:        binmaps.New(),
		signedAckOut:  binmaps.New(),
		checkpointBin: bins.None,
		picker:        picker,
	}

	if o.Protection == ProtectionUnifiedMerkle {
		t.tree = livetree.NewClientTree(verifier, o.ChunkSize)
	}

	return t, nil
}

func (t *LiveTransfer) Picker() LivePiecePicker { return t.picker }

// OnVerifiedMunroHash is called when the channel layer has accepted a
// correctly signed munro from a peer. The epoch width is learned from
// the munro's span and the picker is told the peer offers everything
// under it; the picker chooses the hook-in position from that.
func (t *LiveTransfer) OnVerifiedMunroHash(munro bins.Bin, sendc Channel) error {
	if t.source {
		return ErrNotClient
	}
	t.tree.SetNChunksPerSign(uint32(munro.BaseLength()))
	t.picker.StartAddPeerPos(sendc.ID(), munro, sendc.PeerIsSource())
	return nil
}

// OfferData verifies a received chunk against the tree and, when it
// checks out, persists it at its stream offset. Verification failures
// drop the chunk but keep the channel usable.
func (t *LiveTransfer) OfferData(pos bins.Bin, data []byte) error {
	if t.source {
		return ErrNotClient
	}
	if t.cipm == ProtectionUnifiedMerkle {
		if err := t.tree.OfferData(pos, data); err != nil {
			return err
		}
	} else {
		t.ackOut.Set(pos)
	}
	off := int64(pos.BaseOffset() * uint64(t.chunkSize))
	if _, err := t.storage.Write(data, off); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}
