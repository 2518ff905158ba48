// Package builder assembles a version-2 pack from the objects reachable
// from a set of commit roots.
package builder

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/pinpt/gitpack/gitpack/codec"
	"github.com/pinpt/gitpack/gitpack/object"
	"github.com/pinpt/gitpack/gitpack/pack"
	"github.com/pinpt/gitpack/gitpack/pkg/logger"
	"github.com/pinpt/gitpack/gitpack/store"
	"github.com/pinpt/gitpack/gitpack/varint"
)

// Opts is configuration for building one pack.
type Opts struct {
	// Store resolves object ids and knows which objects are already
	// durably packed.
	Store store.Store

	// Codec deflates entry payloads. Defaults to the zlib codec.
	Codec codec.Codec

	// Logger object for info and debug.
	Logger logger.Logger
}

// Builder collects reachable objects and emits them as a pack. A Builder
// is single-shot: construct, call Build once, discard.
type Builder struct {
	opts    Opts
	visited map[object.ID]bool
	objects []emitted
	built   bool
}

type emitted struct {
	kind object.Kind
	data []byte
}

func New(opts Opts) *Builder {
	if opts.Codec == nil {
		opts.Codec = codec.NewZlib()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewDefaultLogger(os.Stdout)
	}
	b := &Builder{}
	b.opts = opts
	b.visited = map[object.ID]bool{}
	return b
}

// Build walks the given commits in caller order and returns a pack
// containing every reachable commit, tree and blob that is not already in
// a pack known to the store. The walk does not descend into a tree that
// is already packed, and gitlink entries are skipped. Emitted objects are
// full materializations; the builder writes no delta entries.
func (b *Builder) Build(roots []object.ID) ([]byte, error) {
	if b.built {
		return nil, fmt.Errorf("builder: Build called twice on one Builder")
	}
	b.built = true
	for _, id := range roots {
		if err := b.commit(id); err != nil {
			return nil, err
		}
	}
	b.opts.Logger.Info("pack build collected objects", "roots", len(roots), "objects", len(b.objects))
	return b.assemble()
}

func (b *Builder) commit(id object.ID) error {
	if b.visited[id] {
		return nil
	}
	b.visited[id] = true
	data, err := b.load(id, object.KindCommit)
	if err != nil {
		return err
	}
	treeID, err := object.CommitTree(data)
	if err != nil {
		return fmt.Errorf("builder: commit %v: %w", id, err)
	}
	packed, err := b.packed(id)
	if err != nil {
		return err
	}
	if !packed {
		b.emit(object.KindCommit, data)
	}
	return b.tree(treeID)
}

func (b *Builder) tree(id object.ID) error {
	if b.visited[id] {
		return nil
	}
	b.visited[id] = true
	packed, err := b.packed(id)
	if err != nil {
		return err
	}
	if packed {
		// Already durable in an earlier pack; its children are
		// assumed reachable on the remote side too.
		return nil
	}
	data, err := b.load(id, object.KindTree)
	if err != nil {
		return err
	}
	entries, err := object.ScanTree(data)
	if err != nil {
		return fmt.Errorf("builder: tree %v: %w", id, err)
	}
	for _, te := range entries {
		switch {
		case te.IsGitlink():
			// Submodule commits live in another repository.
		case te.IsTree():
			if err := b.tree(te.ID); err != nil {
				return err
			}
		default:
			if err := b.blob(te.ID); err != nil {
				return err
			}
		}
	}
	// Trees go out after their children so a reader never has to
	// resolve a forward reference.
	b.emit(object.KindTree, data)
	return nil
}

func (b *Builder) blob(id object.ID) error {
	if b.visited[id] {
		return nil
	}
	b.visited[id] = true
	packed, err := b.packed(id)
	if err != nil {
		return err
	}
	if packed {
		return nil
	}
	data, err := b.load(id, object.KindBlob)
	if err != nil {
		return err
	}
	b.emit(object.KindBlob, data)
	return nil
}

func (b *Builder) emit(kind object.Kind, data []byte) {
	b.objects = append(b.objects, emitted{kind: kind, data: data})
}

func (b *Builder) load(id object.ID, hint object.Kind) ([]byte, error) {
	_, data, err := b.opts.Store.Retrieve(id, hint)
	if err != nil {
		return nil, &pack.StoreError{Err: err}
	}
	return data, nil
}

func (b *Builder) packed(id object.ID) (bool, error) {
	ok, err := b.opts.Store.FindPacked(id)
	if err != nil {
		return false, &pack.StoreError{Err: err}
	}
	return ok, nil
}

func (b *Builder) assemble() ([]byte, error) {
	out := make([]byte, 0, 12)
	out = append(out, 'P', 'A', 'C', 'K')
	out = binary.BigEndian.AppendUint32(out, 2)
	out = binary.BigEndian.AppendUint32(out, uint32(len(b.objects)))
	for _, o := range b.objects {
		out = varint.AppendObjHeader(out, byte(o.kind), int64(len(o.data)))
		z, err := b.opts.Codec.Deflate(o.data)
		if err != nil {
			return nil, &pack.CodecError{Err: err}
		}
		out = append(out, z...)
	}
	sum := sha1.Sum(out)
	return append(out, sum[:]...), nil
}
