package live

import (
	"math"

	"github.com/datatrails/go-datatrails-common/logger"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize uint32 = 1024

// DiscardWindowAll disables the discard window: every chunk is kept.
const DiscardWindowAll uint64 = math.MaxUint64

// ProtectionMethod selects how content integrity is protected on the
// wire.
type ProtectionMethod int

const (
	ProtectionNone ProtectionMethod = iota
	ProtectionSignAll
	ProtectionUnifiedMerkle
)

// TransferOptions collects the tunables for both transfer roles.
type TransferOptions struct {
	ChunkSize      uint32
	DiscardWindow  uint64
	NChunksPerSign uint32
	CheckpointPath string
	Protection     ProtectionMethod
	Picker         LivePiecePicker
	Log            logger.Logger
}

// Option is a generic option type. Option funcs type assert to the
// TransferOptions target and ignore anything else.
type Option func(any)

func WithChunkSize(size uint32) Option {
	return func(opts any) {
		if o, ok := opts.(*TransferOptions); ok {
			o.ChunkSize = size
		}
	}
}

// WithDiscardWindow bounds how many recent chunks are kept; older
// subtrees are pruned and their bytes may be overwritten on disk.
func WithDiscardWindow(chunks uint64) Option {
	return func(opts any) {
		if o, ok := opts.(*TransferOptions); ok {
			o.DiscardWindow = chunks
		}
	}
}

// WithChunksPerSign sets the epoch width: the source signs one munro
// per this many appended chunks. Must be a power of two.
func WithChunksPerSign(n uint32) Option {
	return func(opts any) {
		if o, ok := opts.(*TransferOptions); ok {
			o.NChunksPerSign = n
		}
	}
}

// WithCheckpointFile makes the source persist each epoch munro so a
// restart can continue the tree above it.
func WithCheckpointFile(path string) Option {
	return func(opts any) {
		if o, ok := opts.(*TransferOptions); ok {
			o.CheckpointPath = path
		}
	}
}

func WithProtectionMethod(m ProtectionMethod) Option {
	return func(opts any) {
		if o, ok := opts.(*TransferOptions); ok {
			o.Protection = m
		}
	}
}

func WithPicker(p LivePiecePicker) Option {
	return func(opts any) {
		if o, ok := opts.(*TransferOptions); ok {
			o.Picker = p
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(opts any) {
		if o, ok := opts.(*TransferOptions); ok {
			o.Log = log
		}
	}
}
