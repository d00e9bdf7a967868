package live

import "errors"

var (
	ErrTransferBroken    = errors.New("live transfer is broken and no longer accepts input")
	ErrNotSource         = errors.New("operation requires the source role")
	ErrNotClient         = errors.New("operation requires the client role")
	ErrStorageWrite      = errors.New("error writing to storage")
	ErrChunksPerSignPow2 = errors.New("chunks per sign must be a power of two")
	ErrSignerRequired    = errors.New("a signer is required for a live source")
	ErrVerifierRequired  = errors.New("a verifier is required for a live client")
)
