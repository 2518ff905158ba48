package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Kind is the type tag of an object as stored in a pack entry header.
type Kind byte

const (
	KindNone Kind = 0

	KindCommit Kind = 1
	KindTree   Kind = 2
	KindBlob   Kind = 3
	KindTag    Kind = 4

	// 5 is reserved by the pack format and never valid.

	KindOfsDelta Kind = 6
	KindRefDelta Kind = 7
)

var kindNames = map[Kind]string{
	KindCommit:   "commit",
	KindTree:     "tree",
	KindBlob:     "blob",
	KindTag:      "tag",
	KindOfsDelta: "ofs-delta",
	KindRefDelta: "ref-delta",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is one of the kinds that may appear in a pack
// entry header. 0 and the reserved value 5 are not valid.
func (k Kind) Valid() bool {
	return k >= KindCommit && k <= KindRefDelta && k != 5
}

// Materialized reports whether k names a concrete object kind rather than
// a delta encoding.
func (k Kind) Materialized() bool {
	return k >= KindCommit && k <= KindTag
}

// ParseKind maps the canonical lower-case spelling back to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("object: unknown kind %q", s)
}

// ID is a 20-byte SHA-1 object identifier.
type ID [20]byte

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the all-zero identifier.
func (id ID) IsZero() bool {
	return id == ID{}
}

// IDFromHex parses a 40-character hex object identifier.
func IDFromHex(s string) (id ID, err error) {
	if len(s) != 40 {
		return id, fmt.Errorf("object: id must be 40 hex chars, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("object: bad id %q: %v", s, err)
	}
	copy(id[:], b)
	return id, nil
}

// Frame returns the "<kind> <size>\x00" header that prefixes object bytes
// before hashing.
func Frame(kind Kind, size int) []byte {
	return []byte(kind.String() + " " + strconv.Itoa(size) + "\x00")
}

// Hash returns the content identifier of a materialized object, the SHA-1
// of its frame followed by its bytes.
func Hash(kind Kind, data []byte) ID {
	h := sha1.New()
	h.Write(Frame(kind, len(data)))
	h.Write(data)
	var id ID
	h.Sum(id[:0])
	return id
}
