package livetree

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-livestream/bins"
)

// MunroTuple is the authenticated unit the source publishes: a signed
// tree peak with the time it was signed.
type MunroTuple struct {
	Bin       bins.Bin
	Hash      Hash
	Timestamp int64
	Signature []byte
}

// NoMunro is the sentinel "no checkpoint present" tuple.
var NoMunro = MunroTuple{Bin: bins.None}

func (t MunroTuple) IsNone() bool { return t.Bin.IsNone() }

// EncodeCheckpoint renders the munro as the single checkpoint line:
//
//	(layer,offset) hash-in-hex timestamp sig-in-hex\n
func EncodeCheckpoint(tup MunroTuple) []byte {
	s := fmt.Sprintf("%s %s %d %s\n",
		tup.Bin, tup.Hash.Hex(), tup.Timestamp, hex.EncodeToString(tup.Signature))
	return []byte(s)
}

// DecodeCheckpoint parses a checkpoint line. Any malformed field yields
// ErrCheckpointFormat; callers treat that as "no checkpoint present".
func DecodeCheckpoint(data []byte) (MunroTuple, error) {
	line := strings.TrimSuffix(string(data), "\n")

	binstr, rest, ok := strings.Cut(line, " ")
	if !ok {
		return NoMunro, fmt.Errorf("%w: no bin", ErrCheckpointFormat)
	}
	hashstr, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return NoMunro, fmt.Errorf("%w: no hash", ErrCheckpointFormat)
	}
	timestr, sigstr, ok := strings.Cut(rest, " ")
	if !ok {
		return NoMunro, fmt.Errorf("%w: no timestamp", ErrCheckpointFormat)
	}

	if len(binstr) < 2 || binstr[0] != '(' || binstr[len(binstr)-1] != ')' {
		return NoMunro, fmt.Errorf("%w: bin bad", ErrCheckpointFormat)
	}
	layerstr, offstr, ok := strings.Cut(binstr[1:len(binstr)-1], ",")
	if !ok {
		return NoMunro, fmt.Errorf("%w: bin bad", ErrCheckpointFormat)
	}
	layer, err := strconv.ParseUint(layerstr, 10, 6)
	if err != nil {
		return NoMunro, fmt.Errorf("%w: bin layer bad", ErrCheckpointFormat)
	}
	offset, err := strconv.ParseUint(offstr, 10, 64)
	if err != nil {
		return NoMunro, fmt.Errorf("%w: bin layer offset bad", ErrCheckpointFormat)
	}

	h, err := ParseHexHash(hashstr)
	if err != nil {
		return NoMunro, fmt.Errorf("%w: hash bad", ErrCheckpointFormat)
	}
	ts, err := strconv.ParseInt(timestr, 10, 64)
	if err != nil {
		return NoMunro, fmt.Errorf("%w: timestamp bad", ErrCheckpointFormat)
	}
	sig, err := hex.DecodeString(sigstr)
	if err != nil {
		return NoMunro, fmt.Errorf("%w: signature bad", ErrCheckpointFormat)
	}

	return MunroTuple{
		Bin:       bins.New(layer, offset),
		Hash:      h,
		Timestamp: ts,
		Signature: sig,
	}, nil
}

// WriteCheckpointFile writes the munro checkpoint with a fresh open per
// call. The write is not atomic; a crash mid write is recovered as "no
// checkpoint" on the next start.
func WriteCheckpointFile(path string, tup MunroTuple) error {
	return os.WriteFile(path, EncodeCheckpoint(tup), 0o644)
}

// ReadCheckpointFile loads the checkpoint munro. A missing or
// unparseable file is logged and reported as NoMunro so the source
// starts fresh from chunk 0.
func ReadCheckpointFile(path string) MunroTuple {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Sugar.Debugf("checkpoint: read %s: %v", path, err)
		return NoMunro
	}
	tup, err := DecodeCheckpoint(data)
	if err != nil {
		logger.Sugar.Infof("checkpoint: ignoring %s: %v", path, err)
		return NoMunro
	}
	return tup
}
