package live

import "github.com/forestrie/go-livestream/bins"

// LivePiecePicker is the client-side piece selection collaborator. The
// transfer tells it what each peer can serve; the picker answers where
// the client hooked into the stream and how far sequential progress has
// reached.
type LivePiecePicker interface {
	// StartAddPeerPos records that the peer on the given channel offers
	// everything under munro; the source peer is authoritative.
	StartAddPeerPos(channel uint32, munro bins.Bin, peerIsSource bool)
	HookinPos() bins.Bin
	CurrentPos() bins.Bin
	Randomize(seed int64)
}

// SharingLivePicker is a minimal picker that hooks in at the start of
// the first munro offered. An advertisement from the source peer always
// re-hooks; other peers never move an established hook-in.
type SharingLivePicker struct {
	hookin  bins.Bin
	current bins.Bin
	jitter  int64
}

func NewSharingLivePicker() *SharingLivePicker {
	return &SharingLivePicker{hookin: bins.None, current: bins.None}
}

func (p *SharingLivePicker) StartAddPeerPos(channel uint32, munro bins.Bin, peerIsSource bool) {
	if !p.hookin.IsNone() && !peerIsSource {
		return
	}
	p.hookin = munro.BaseLeft()
	if p.current.IsNone() || p.current < p.hookin {
		p.current = p.hookin
	}
}

func (p *SharingLivePicker) HookinPos() bins.Bin { return p.hookin }

func (p *SharingLivePicker) CurrentPos() bins.Bin { return p.current }

// SetCurrentPos advances sequential progress; the download loop calls
// this as verified chunks arrive in order.
func (p *SharingLivePicker) SetCurrentPos(pos bins.Bin) { p.current = pos }

func (p *SharingLivePicker) Randomize(seed int64) { p.jitter = seed }
