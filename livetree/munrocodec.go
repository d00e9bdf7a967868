package livetree

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/forestrie/go-livestream/bins"
)

// munroRecord is the deterministic CBOR form of a munro used by the
// channel layer and persistence tooling. Integer keys keep the encoding
// small and stable on the wire.
type munroRecord struct {
	Bin       uint64 `cbor:"1,keyasint"`
	Hash      []byte `cbor:"2,keyasint"`
	Timestamp int64  `cbor:"3,keyasint"`
	Signature []byte `cbor:"4,keyasint"`
}

var (
	munroEncMode cbor.EncMode
	munroDecMode cbor.DecMode
)

func init() {
	var err error
	munroEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	munroDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// MarshalCBOR encodes the munro deterministically.
func (t MunroTuple) MarshalCBOR() ([]byte, error) {
	return munroEncMode.Marshal(munroRecord{
		Bin:       uint64(t.Bin),
		Hash:      t.Hash[:],
		Timestamp: t.Timestamp,
		Signature: t.Signature,
	})
}

// UnmarshalCBOR decodes a munro encoded by MarshalCBOR.
func (t *MunroTuple) UnmarshalCBOR(data []byte) error {
	var rec munroRecord
	if err := munroDecMode.Unmarshal(data, &rec); err != nil {
		return err
	}
	tup := MunroTuple{
		Bin:       bins.Bin(rec.Bin),
		Timestamp: rec.Timestamp,
		Signature: rec.Signature,
	}
	copy(tup.Hash[:], rec.Hash)
	*t = tup
	return nil
}
