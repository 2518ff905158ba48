package pack

import (
	"github.com/pinpt/gitpack/gitpack/object"
)

// Entry is one object slot of a parsed pack. Deltified entries are
// rewritten in place by resolution: Kind becomes the base's materialized
// kind, Payload becomes the expanded bytes, and SHA1 is set.
type Entry struct {
	// Offset is the byte position of the entry's first header byte
	// within the pack buffer.
	Offset int64

	// Kind starts as the header's type tag and carries the
	// materialized kind once the entry is resolved.
	Kind object.Kind

	// Size is the inflated payload length declared in the header. For
	// deltified entries this is the length of the delta instruction
	// stream, not of the expanded object.
	Size int64

	// Payload holds the inflated bytes, or nil after ReleasePayload.
	Payload []byte

	// CRC32 covers the entry's on-wire bytes, header included. Index
	// generation needs it later, so it is always computed.
	CRC32 uint32

	// SHA1 is set once the entry is materialized.
	SHA1 object.ID

	// BaseOffset is the absolute position of an ofs-delta's base.
	BaseOffset int64

	// BaseID identifies a ref-delta's base, which may live in this
	// pack or in the object store.
	BaseID object.ID
}

// ReleasePayload drops the payload bytes to relieve memory pressure. The
// caller opts in per entry, normally once SHA1 is set.
func (e *Entry) ReleasePayload() {
	e.Payload = nil
}

// Pack is the result of parsing one pack buffer: its entries in on-wire
// order plus the trailing checksum.
type Pack struct {
	Entries  []*Entry
	Checksum object.ID
}

// KindCounts returns a histogram of entry kinds.
func (p *Pack) KindCounts() map[object.Kind]int {
	res := map[object.Kind]int{}
	for _, e := range p.Entries {
		res[e.Kind]++
	}
	return res
}

// ByID returns the materialized entry with the given id, or nil.
func (p *Pack) ByID(id object.ID) *Entry {
	for _, e := range p.Entries {
		if e.SHA1 == id && e.Kind.Materialized() {
			return e
		}
	}
	return nil
}
