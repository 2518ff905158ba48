package pack

import "errors"

// Parse and resolve failures. All are terminal for the operation that
// raised them; no partial results are surfaced alongside one.
var (
	// ErrMalformedHeader is returned when the buffer does not start
	// with the PACK magic.
	ErrMalformedHeader = errors.New("pack: malformed header")
	// ErrUnsupportedVersion is returned for any pack version other
	// than 2.
	ErrUnsupportedVersion = errors.New("pack: unsupported version")
	// ErrTruncated is returned when a declared size exceeds what is
	// left of the buffer.
	ErrTruncated = errors.New("pack: truncated")
	// ErrInvalidKind is returned for entry kind 0 or the reserved 5.
	ErrInvalidKind = errors.New("pack: invalid object kind")
	// ErrDanglingOffsetDelta is returned when an ofs-delta's base
	// offset does not land on a previously seen entry.
	ErrDanglingOffsetDelta = errors.New("pack: ofs-delta references no known entry")
	// ErrMissingBase is returned when resolution stalls with exactly one
	// ref-delta whose base is neither in the pack nor in the object store.
	ErrMissingBase = errors.New("pack: ref-delta base missing from pack and store")
	// ErrCyclicDelta is returned when resolution stalls with two or more
	// ref-deltas waiting on bases that never materialize. Stuck entries
	// that really loop are not told apart from entries whose bases are
	// each absent; both are reported with this error.
	ErrCyclicDelta = errors.New("pack: ref-delta chain loops")

	// ErrInvalidDeltaOpcode is returned for the reserved opcode 0.
	ErrInvalidDeltaOpcode = errors.New("pack: reserved delta opcode")
	// ErrDeltaBaseLengthMismatch is returned when a delta's declared
	// base length differs from the actual base.
	ErrDeltaBaseLengthMismatch = errors.New("pack: delta base length mismatch")
	// ErrDeltaLengthMismatch is returned when the opcode stream does
	// not produce exactly the declared result length.
	ErrDeltaLengthMismatch = errors.New("pack: delta result length mismatch")
	// ErrDeltaOutOfRange is returned when a copy reaches past the end
	// of the base.
	ErrDeltaOutOfRange = errors.New("pack: delta copy exceeds base bounds")

	// ErrChecksumMismatch is returned when the trailing SHA-1 does not
	// match the pack body, or when bytes remain after it.
	ErrChecksumMismatch = errors.New("pack: checksum mismatch")
)

// StoreError wraps a failure propagated from the object store.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return "pack: object store: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CodecError wraps a failure propagated from the compression codec.
type CodecError struct {
	Err error
}

func (e *CodecError) Error() string {
	return "pack: codec: " + e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
