package livetree

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"

	"github.com/veraison/go-cose"

	"github.com/forestrie/go-livestream/bins"
)

// ES256SignatureLength is the raw signature length for the default
// ES256 munro signer.
const ES256SignatureLength = 64

// Signer produces munro signatures at the live source. The tree is
// agnostic to the scheme; it only requires that signatures have a fixed
// length per key type.
type Signer interface {
	Sign(content []byte) ([]byte, error)
	SignatureLength() int
}

// Verifier checks munro signatures at a live client against the swarm's
// public key.
type Verifier interface {
	Verify(content, signature []byte) error
}

// munroContent is the byte string a munro signature covers: the bin
// label big-endian followed by the peak hash.
func munroContent(b bins.Bin, h Hash) []byte {
	content := make([]byte, 8+HashSize)
	binary.BigEndian.PutUint64(content, uint64(b))
	copy(content[8:], h[:])
	return content
}

// CoseSigner signs munros with COSE ES256 over an ecdsa P-256 key,
// producing fixed 64 byte raw signatures.
type CoseSigner struct {
	signer cose.Signer
}

func NewCoseSigner(key *ecdsa.PrivateKey) (*CoseSigner, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, err
	}
	return &CoseSigner{signer: signer}, nil
}

func (s *CoseSigner) Sign(content []byte) ([]byte, error) {
	return s.signer.Sign(rand.Reader, content)
}

func (s *CoseSigner) SignatureLength() int { return ES256SignatureLength }

// CoseVerifier verifies CoseSigner signatures against the swarm public
// key.
type CoseVerifier struct {
	verifier cose.Verifier
}

func NewCoseVerifier(pub *ecdsa.PublicKey) (*CoseVerifier, error) {
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return nil, err
	}
	return &CoseVerifier{verifier: verifier}, nil
}

func (v *CoseVerifier) Verify(content, signature []byte) error {
	return v.verifier.Verify(content, signature)
}
