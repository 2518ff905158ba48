// Package store defines the object store the pack engine collaborates
// with, plus in-memory and on-disk implementations of it.
package store

import (
	"errors"

	"github.com/pinpt/gitpack/gitpack/object"
)

// ErrNotFound is returned by Retrieve when the store has no object with
// the requested id.
var ErrNotFound = errors.New("store: object not found")

// Store is the engine's view of durable object storage. It is read-only
// during a parse and append-only during a build.
type Store interface {
	// FindPacked reports whether the object is already part of a pack
	// the store knows about.
	FindPacked(id object.ID) (bool, error)

	// Retrieve returns a materialized object. hint is the kind the
	// caller expects, or object.KindNone when it has no expectation;
	// stores may use it to fail fast on kind confusion.
	Retrieve(id object.ID, hint object.Kind) (object.Kind, []byte, error)

	// PersistPack stores a completed pack buffer.
	PersistPack(data []byte) error
}
