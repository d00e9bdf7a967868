package livetree

import "errors"

var (
	ErrBadHashEncoding  = errors.New("hash is not valid lowercase hex of the right length")
	ErrSignatureInvalid = errors.New("munro signature verification failed")
	ErrMunroMixup       = errors.New("signed munro does not match the candidate peak hash")
	ErrAwaitingMunro    = errors.New("no signed munro received yet")
	ErrNotBaseBin       = errors.New("bin is not at the base layer")
	ErrBadChunkSize     = errors.New("chunk length does not match the swarm chunk size")
	ErrNoCoveringPeak   = errors.New("no signed peak covers the bin")
	ErrHashMismatch     = errors.New("chunk hash did not verify against the signed peak")
	ErrPeakMissing      = errors.New("peak node absent from the tree")
	ErrBinNotPresent    = errors.New("bin has no node in the tree")
)

var (
	ErrCheckpointFormat = errors.New("checkpoint line malformed")
	ErrNotSourceTree    = errors.New("operation requires a source tree")
	ErrNotClientTree    = errors.New("operation requires a client tree")
)
