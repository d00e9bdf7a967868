package livetree

import (
	"bytes"
	"crypto/sha1"
	"fmt"
)

// StubSigner is a deterministic fixed-length placeholder signer for
// tests and for swarms that run without content integrity protection.
// The "signature" is the digest of the content repeated to the ES256
// signature length, so StubVerifier can check it by recomputation.
type StubSigner struct{}

func stubSignature(content []byte) []byte {
	d := sha1.Sum(content)
	sig := make([]byte, 0, ES256SignatureLength)
	for len(sig) < ES256SignatureLength {
		sig = append(sig, d[:]...)
	}
	return sig[:ES256SignatureLength]
}

func (StubSigner) Sign(content []byte) ([]byte, error) {
	return stubSignature(content), nil
}

func (StubSigner) SignatureLength() int { return ES256SignatureLength }

// StubVerifier accepts exactly the signatures StubSigner produces.
type StubVerifier struct{}

func (StubVerifier) Verify(content, signature []byte) error {
	if !bytes.Equal(signature, stubSignature(content)) {
		return fmt.Errorf("%w: stub signature mismatch", ErrSignatureInvalid)
	}
	return nil
}
