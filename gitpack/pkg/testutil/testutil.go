// Package testutil builds deterministic synthetic packs for tests.
package testutil

import (
	"crypto/sha1"
	"encoding/binary"
	"testing"

	"github.com/pinpt/gitpack/gitpack/codec"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/varint"
)

// PackEntry describes one entry of a fixture pack.
type PackEntry struct {
	Kind object.Kind

	// Data is the inflated payload: object bytes for materialized
	// kinds, the instruction stream for deltas.
	Data []byte

	// BaseIndex selects an earlier entry as an ofs-delta base.
	BaseIndex int

	// BaseID names a ref-delta base.
	BaseID object.ID
}

// BuildPack assembles a well-formed version-2 pack from entries.
func BuildPack(t testing.TB, entries []PackEntry) []byte {
	t.Helper()
	cc := codec.NewZlib()
	out := make([]byte, 0, 64)
	out = append(out, 'P', 'A', 'C', 'K')
	out = binary.BigEndian.AppendUint32(out, 2)
	out = binary.BigEndian.AppendUint32(out, uint32(len(entries)))
	offsets := make([]int64, len(entries))
	for i, e := range entries {
		offsets[i] = int64(len(out))
		out = varint.AppendObjHeader(out, byte(e.Kind), int64(len(e.Data)))
		switch e.Kind {
		case object.KindOfsDelta:
			out = varint.AppendOfsDistance(out, offsets[i]-offsets[e.BaseIndex])
		case object.KindRefDelta:
			out = append(out, e.BaseID[:]...)
		}
		z, err := cc.Deflate(e.Data)
		if err != nil {
			t.Fatalf("deflate fixture entry %d: %v", i, err)
		}
		out = append(out, z...)
	}
	sum := sha1.Sum(out)
	return append(out, sum[:]...)
}

// Delta frames an instruction stream with its base and result lengths.
func Delta(baseLen, resultLen int, ops ...[]byte) []byte {
	res := varint.AppendLE(nil, uint64(baseLen))
	res = varint.AppendLE(res, uint64(resultLen))
	for _, op := range ops {
		res = append(res, op...)
	}
	return res
}

// CopyOp encodes a copy instruction for the given base range.
func CopyOp(off, size int) []byte {
	res := []byte{0x80}
	for i := uint(0); i < 4; i++ {
		if b := byte(off >> (8 * i)); b != 0 {
			res[0] |= 1 << i
			res = append(res, b)
		}
	}
	if size != 65536 {
		for i := uint(0); i < 2; i++ {
			if b := byte(size >> (8 * i)); b != 0 {
				res[0] |= 1 << (4 + i)
				res = append(res, b)
			}
		}
	}
	return res
}

// InsertOp encodes a literal insert of data, which must be 1..127 bytes.
func InsertOp(data []byte) []byte {
	return append([]byte{byte(len(data))}, data...)
}
