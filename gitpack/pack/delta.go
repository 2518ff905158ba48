package pack

import (
	"fmt"

	"github.com/pinpt/gitpack/gitpack/varint"
)

// ApplyDelta reconstructs a target buffer from a base buffer and a delta
// instruction stream. The stream starts with two varints declaring the
// base and result lengths, followed by copy and insert opcodes until it
// is exhausted.
func ApplyDelta(base, delta []byte) ([]byte, error) {
	baseLen, n := varint.LE(delta)
	if n <= 0 {
		return nil, fmt.Errorf("%w: unreadable base length", ErrDeltaLengthMismatch)
	}
	delta = delta[n:]
	if baseLen != uint64(len(base)) {
		return nil, fmt.Errorf("%w: declared %d, base is %d", ErrDeltaBaseLengthMismatch, baseLen, len(base))
	}
	resultLen, n := varint.LE(delta)
	if n <= 0 {
		return nil, fmt.Errorf("%w: unreadable result length", ErrDeltaLengthMismatch)
	}
	delta = delta[n:]

	res := make([]byte, resultLen)
	w := uint64(0)
	i := 0
	for i < len(delta) {
		op := delta[i]
		i++
		switch {
		case op == 0:
			return nil, ErrInvalidDeltaOpcode
		case op&0x80 != 0:
			off, size, n := copyArgs(delta[i:], op)
			if n < 0 {
				return nil, fmt.Errorf("%w: copy arguments run past the delta end", ErrDeltaLengthMismatch)
			}
			i += n
			if off+size > baseLen || off+size < off {
				return nil, fmt.Errorf("%w: copy [%d,%d) of a %d-byte base", ErrDeltaOutOfRange, off, off+size, baseLen)
			}
			if w+size > resultLen {
				return nil, fmt.Errorf("%w: copy overflows declared result length %d", ErrDeltaLengthMismatch, resultLen)
			}
			copy(res[w:], base[off:off+size])
			w += size
		default:
			size := uint64(op)
			if i+int(size) > len(delta) {
				return nil, fmt.Errorf("%w: insert runs past the delta end", ErrDeltaLengthMismatch)
			}
			if w+size > resultLen {
				return nil, fmt.Errorf("%w: insert overflows declared result length %d", ErrDeltaLengthMismatch, resultLen)
			}
			copy(res[w:], delta[i:i+int(size)])
			i += int(size)
			w += size
		}
	}
	if w != resultLen {
		return nil, fmt.Errorf("%w: produced %d of %d bytes", ErrDeltaLengthMismatch, w, resultLen)
	}
	return res, nil
}

// copyArgs decodes the operand bytes of a copy opcode. The low four bits
// of op select which offset bytes follow, bits 4-5 which length bytes;
// absent bytes contribute zero, and a zero length means 65536.
func copyArgs(buf []byte, op byte) (off, size uint64, n int) {
	for i := uint(0); i < 4; i++ {
		if op&(1<<i) != 0 {
			if n >= len(buf) {
				return 0, 0, -1
			}
			off |= uint64(buf[n]) << (8 * i)
			n++
		}
	}
	for i := uint(0); i < 2; i++ {
		if op&(1<<(4+i)) != 0 {
			if n >= len(buf) {
				return 0, 0, -1
			}
			size |= uint64(buf[n]) << (8 * i)
			n++
		}
	}
	if size == 0 {
		size = 65536
	}
	return off, size, n
}
