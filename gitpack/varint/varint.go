// Package varint implements the three variable-length integer encodings
// used by version-2 Git packs: the object-entry header (3-bit kind plus a
// 4+7k-bit size), the modified big-endian offset of ofs-delta entries, and
// the plain little-endian 7-bit form used inside delta payloads.
//
// Decoders follow the encoding/binary.Uvarint convention for the byte
// count: n == 0 means the buffer ran out, n < 0 means the value overflowed
// 64 bits.
package varint

// ObjHeader decodes an entry header from the start of buf. kind is the
// 3-bit type tag from bits 4-6 of the first byte; size accumulates 4 bits
// from the first byte and 7 from each continuation byte.
func ObjHeader(buf []byte) (kind byte, size int64, n int) {
	if len(buf) == 0 {
		return 0, 0, 0
	}
	b := buf[0]
	n = 1
	kind = b >> 4 & 0x7
	usize := uint64(b & 0x0F)
	shift := uint(4)
	for b&0x80 != 0 {
		if n >= len(buf) {
			return 0, 0, 0
		}
		if shift > 63 {
			return 0, 0, -n
		}
		b = buf[n]
		n++
		usize |= uint64(b&0x7F) << shift
		shift += 7
	}
	if int64(usize) < 0 {
		return 0, 0, -n
	}
	return kind, int64(usize), n
}

// AppendObjHeader appends the entry-header encoding of kind and size.
func AppendObjHeader(dst []byte, kind byte, size int64) []byte {
	b := kind<<4 | byte(size&0x0F)
	size >>= 4
	for size != 0 {
		dst = append(dst, b|0x80)
		b = byte(size & 0x7F)
		size >>= 7
	}
	return append(dst, b)
}

// OfsDistance decodes the modified big-endian offset encoding of an
// ofs-delta entry. The low 7 bits of each byte are concatenated MSB-first;
// every continuation step additionally adds one before shifting, which is
// equivalent to summing 2^(7i) over the continuation bytes.
func OfsDistance(buf []byte) (dist int64, n int) {
	if len(buf) == 0 {
		return 0, 0
	}
	b := buf[0]
	n = 1
	x := uint64(b & 0x7F)
	for b&0x80 != 0 {
		if n >= len(buf) {
			return 0, 0
		}
		if x >= 1<<56 {
			return 0, -n
		}
		b = buf[n]
		n++
		x = (x+1)<<7 | uint64(b&0x7F)
	}
	return int64(x), n
}

// AppendOfsDistance appends the modified big-endian encoding of dist.
func AppendOfsDistance(dst []byte, dist int64) []byte {
	var p [10]byte
	x := uint64(dist)
	i := len(p) - 1
	p[i] = byte(x) & 0x7F
	x = x>>7 - 1
	for x != ^uint64(0) {
		i--
		p[i] = byte(x)&0x7F | 0x80
		x = x>>7 - 1
	}
	return append(dst, p[i:]...)
}

// LE decodes the plain little-endian 7-bit varint used for the base and
// result lengths at the head of a delta payload.
func LE(buf []byte) (v uint64, n int) {
	var shift uint
	for n < len(buf) {
		b := buf[n]
		n++
		if shift > 63 {
			return 0, -n
		}
		v |= uint64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			return v, n
		}
	}
	return 0, 0
}

// AppendLE appends the little-endian 7-bit varint encoding of v.
func AppendLE(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}
