package pack

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pinpt/gitpack/gitpack/codec"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/pkg/testutil"
	"github.com/pinpt/gitpack/gitpack/varint"
)

func packPrefix(count uint32) []byte {
	out := []byte("PACK")
	out = binary.BigEndian.AppendUint32(out, 2)
	return binary.BigEndian.AppendUint32(out, count)
}

func sealed(body []byte) []byte {
	sum := sha1.Sum(body)
	return append(body, sum[:]...)
}

func TestParseEmptyPack(t *testing.T) {
	p, err := Parse(sealed(packPrefix(0)), codec.NewZlib())
	assert.NoError(t, err)
	assert.Empty(t, p.Entries)
}

func TestParseSingleBlob(t *testing.T) {
	buf := testutil.BuildPack(t, []testutil.PackEntry{
		{Kind: object.KindBlob, Data: []byte("hello\n")},
	})
	p, err := Parse(buf, codec.NewZlib())
	assert.NoError(t, err)
	assert.Len(t, p.Entries, 1)

	e := p.Entries[0]
	assert.Equal(t, object.KindBlob, e.Kind)
	assert.Equal(t, int64(12), e.Offset)
	assert.Equal(t, int64(6), e.Size)
	assert.Equal(t, []byte("hello\n"), e.Payload)
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", e.SHA1.String())

	// CRC covers the on-wire entry bytes, header included.
	assert.Equal(t, crc32.ChecksumIEEE(buf[12:len(buf)-20]), e.CRC32)

	var want object.ID
	copy(want[:], buf[len(buf)-20:])
	assert.Equal(t, want, p.Checksum)
}

func TestParseEntriesInWireOrder(t *testing.T) {
	buf := testutil.BuildPack(t, []testutil.PackEntry{
		{Kind: object.KindBlob, Data: []byte("one")},
		{Kind: object.KindBlob, Data: []byte("two")},
		{Kind: object.KindBlob, Data: []byte("three")},
	})
	p, err := Parse(buf, codec.NewZlib())
	assert.NoError(t, err)
	assert.Len(t, p.Entries, 3)
	assert.Equal(t, []byte("one"), p.Entries[0].Payload)
	assert.Equal(t, []byte("two"), p.Entries[1].Payload)
	assert.Equal(t, []byte("three"), p.Entries[2].Payload)
	for i := 1; i < 3; i++ {
		assert.Greater(t, p.Entries[i].Offset, p.Entries[i-1].Offset)
	}
}

func TestParseBadMagic(t *testing.T) {
	buf := sealed(packPrefix(0))
	buf[0] = 'J'
	_, err := Parse(buf, codec.NewZlib())
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, err = Parse([]byte("PA"), codec.NewZlib())
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestParseBadVersion(t *testing.T) {
	buf := sealed(packPrefix(0))
	// Full big-endian decode: a stray high byte must fail too, not
	// just a wrong low byte.
	buf[4] = 1
	_, err := Parse(buf, codec.NewZlib())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	buf = sealed(packPrefix(0))
	buf[7] = 3
	_, err = Parse(buf, codec.NewZlib())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParseShortHeader(t *testing.T) {
	_, err := Parse([]byte("PACK\x00\x00"), codec.NewZlib())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseInvalidKind(t *testing.T) {
	cc := codec.NewZlib()
	for _, kind := range []byte{0, 5} {
		body := packPrefix(1)
		body = varint.AppendObjHeader(body, kind, 1)
		z, err := cc.Deflate([]byte("x"))
		assert.NoError(t, err)
		body = append(body, z...)
		_, err = Parse(sealed(body), cc)
		assert.ErrorIs(t, err, ErrInvalidKind, "kind %d", kind)
	}
}

func TestParseDeclaredSizeBeyondBuffer(t *testing.T) {
	body := packPrefix(1)
	body = varint.AppendObjHeader(body, byte(object.KindBlob), 1<<20)
	_, err := Parse(sealed(body), codec.NewZlib())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseCorruptedChecksum(t *testing.T) {
	buf := testutil.BuildPack(t, []testutil.PackEntry{
		{Kind: object.KindBlob, Data: []byte("hello\n")},
	})
	buf[len(buf)-1] ^= 0xFF
	p, err := Parse(buf, codec.NewZlib())
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Nil(t, p)
}

func TestParseTrailingGarbage(t *testing.T) {
	buf := testutil.BuildPack(t, nil)
	buf = append(buf, 0x00)
	_, err := Parse(buf, codec.NewZlib())
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestParseMissingChecksum(t *testing.T) {
	buf := testutil.BuildPack(t, nil)
	_, err := Parse(buf[:len(buf)-5], codec.NewZlib())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseDanglingOffsetDelta(t *testing.T) {
	cc := codec.NewZlib()

	// Distance reaching before the start of the pack.
	body := packPrefix(1)
	delta := testutil.Delta(4, 1, testutil.InsertOp([]byte("B")))
	body = varint.AppendObjHeader(body, byte(object.KindOfsDelta), int64(len(delta)))
	body = varint.AppendOfsDistance(body, 100)
	z, err := cc.Deflate(delta)
	assert.NoError(t, err)
	body = append(body, z...)
	_, err = Parse(sealed(body), cc)
	assert.ErrorIs(t, err, ErrDanglingOffsetDelta)

	// Distance landing between entry boundaries.
	body = packPrefix(2)
	base := []byte("AAAA")
	body = varint.AppendObjHeader(body, byte(object.KindBlob), int64(len(base)))
	zb, err := cc.Deflate(base)
	assert.NoError(t, err)
	body = append(body, zb...)
	off := int64(len(body))
	body = varint.AppendObjHeader(body, byte(object.KindOfsDelta), int64(len(delta)))
	body = varint.AppendOfsDistance(body, off-13)
	body = append(body, z...)
	_, err = Parse(sealed(body), cc)
	assert.ErrorIs(t, err, ErrDanglingOffsetDelta)
}

func TestParseRefDeltaBaseIDTruncated(t *testing.T) {
	body := packPrefix(1)
	body = varint.AppendObjHeader(body, byte(object.KindRefDelta), 1)
	body = append(body, 0x01, 0x02, 0x03)
	_, err := Parse(body, codec.NewZlib())
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseCorruptZlibStream(t *testing.T) {
	body := packPrefix(1)
	body = varint.AppendObjHeader(body, byte(object.KindBlob), 4)
	body = append(body, 0xFF, 0xFF, 0xFF, 0xFF)
	var cerr *CodecError
	_, err := Parse(sealed(body), codec.NewZlib())
	assert.ErrorAs(t, err, &cerr)
}
