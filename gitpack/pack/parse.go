package pack

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/pinpt/gitpack/gitpack/codec"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/varint"
)

var packMagic = []byte("PACK")

// inflateSlack is how far past the declared size the parser lets the
// codec look for the end of a compressed stream. The codec's reported
// consumption is what actually advances the cursor.
const inflateSlack = 1000

type parser struct {
	buf     []byte
	cur     int
	cc      codec.Codec
	entries []*Entry
	offsets map[int64]*Entry
}

// Parse decodes the wire form of a version-2 pack. The returned entries
// are in on-wire order; deltified ones still carry their instruction
// streams and need Resolve before their kinds and ids are final. The
// parser owns buf until it returns.
func Parse(buf []byte, cc codec.Codec) (*Pack, error) {
	p := &parser{buf: buf, cc: cc}
	p.offsets = map[int64]*Entry{}
	n, err := p.header()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		if err := p.entry(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	sum, err := p.checksum()
	if err != nil {
		return nil, err
	}
	return &Pack{Entries: p.entries, Checksum: sum}, nil
}

func (p *parser) header() (uint32, error) {
	if len(p.buf) < 4 || !bytes.Equal(p.buf[:4], packMagic) {
		return 0, ErrMalformedHeader
	}
	if len(p.buf) < 12 {
		return 0, fmt.Errorf("%w: header needs 12 bytes, have %d", ErrTruncated, len(p.buf))
	}
	version := binary.BigEndian.Uint32(p.buf[4:8])
	if version != 2 {
		return 0, fmt.Errorf("%w: got %d", ErrUnsupportedVersion, version)
	}
	p.cur = 12
	return binary.BigEndian.Uint32(p.buf[8:12]), nil
}

func (p *parser) entry() error {
	e := &Entry{Offset: int64(p.cur)}
	kind, size, n := varint.ObjHeader(p.buf[p.cur:])
	if n <= 0 {
		return fmt.Errorf("%w: object header at offset %d", ErrTruncated, e.Offset)
	}
	p.cur += n
	e.Kind = object.Kind(kind)
	e.Size = size
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %d at offset %d", ErrInvalidKind, kind, e.Offset)
	}

	switch e.Kind {
	case object.KindOfsDelta:
		dist, n := varint.OfsDistance(p.buf[p.cur:])
		if n <= 0 {
			return fmt.Errorf("%w: ofs-delta distance at offset %d", ErrTruncated, e.Offset)
		}
		p.cur += n
		e.BaseOffset = e.Offset - dist
		if e.BaseOffset < 0 {
			return fmt.Errorf("%w: distance %d from offset %d is before the pack start", ErrDanglingOffsetDelta, dist, e.Offset)
		}
		if _, ok := p.offsets[e.BaseOffset]; !ok {
			return fmt.Errorf("%w: no entry at offset %d", ErrDanglingOffsetDelta, e.BaseOffset)
		}
	case object.KindRefDelta:
		if len(p.buf)-p.cur < 20 {
			return fmt.Errorf("%w: ref-delta base id at offset %d", ErrTruncated, e.Offset)
		}
		copy(e.BaseID[:], p.buf[p.cur:p.cur+20])
		p.cur += 20
	}

	if size > int64(len(p.buf)-p.cur) {
		return fmt.Errorf("%w: declared size %d exceeds %d remaining bytes", ErrTruncated, size, len(p.buf)-p.cur)
	}
	end := p.cur + int(size) + inflateSlack
	if end > len(p.buf) {
		end = len(p.buf)
	}
	data, consumed, err := p.cc.Inflate(p.buf[p.cur:end], int(size))
	if err != nil {
		return &CodecError{Err: err}
	}
	p.cur += consumed
	e.Payload = data
	e.CRC32 = crc32.ChecksumIEEE(p.buf[e.Offset:p.cur])
	if e.Kind.Materialized() {
		e.SHA1 = object.Hash(e.Kind, data)
	}
	p.offsets[e.Offset] = e
	p.entries = append(p.entries, e)
	return nil
}

func (p *parser) checksum() (object.ID, error) {
	rem := len(p.buf) - p.cur
	if rem < 20 {
		return object.ID{}, fmt.Errorf("%w: %d bytes left for a 20-byte checksum", ErrTruncated, rem)
	}
	if rem > 20 {
		return object.ID{}, fmt.Errorf("%w: %d trailing bytes after the checksum", ErrChecksumMismatch, rem-20)
	}
	var want object.ID
	copy(want[:], p.buf[p.cur:])
	if got := object.ID(sha1.Sum(p.buf[:p.cur])); got != want {
		return object.ID{}, fmt.Errorf("%w: body hashes to %v, trailer says %v", ErrChecksumMismatch, got, want)
	}
	return want, nil
}
