package store

import (
	"fmt"

	"github.com/pinpt/gitpack/gitpack/object"
)

type memObject struct {
	kind   object.Kind
	data   []byte
	packed bool
}

// MemStore is a map-backed Store for tests and embedded use.
type MemStore struct {
	objects map[object.ID]memObject
	packs   [][]byte
}

func NewMemStore() *MemStore {
	s := &MemStore{}
	s.objects = map[object.ID]memObject{}
	return s
}

// Add hashes and stores a materialized object, returning its id.
func (s *MemStore) Add(kind object.Kind, data []byte) object.ID {
	id := object.Hash(kind, data)
	s.objects[id] = memObject{kind: kind, data: data}
	return id
}

// MarkPacked records that the object already lives in a durable pack.
func (s *MemStore) MarkPacked(id object.ID) {
	o, ok := s.objects[id]
	if !ok {
		return
	}
	o.packed = true
	s.objects[id] = o
}

func (s *MemStore) FindPacked(id object.ID) (bool, error) {
	o, ok := s.objects[id]
	return ok && o.packed, nil
}

func (s *MemStore) Retrieve(id object.ID, hint object.Kind) (object.Kind, []byte, error) {
	o, ok := s.objects[id]
	if !ok {
		return object.KindNone, nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	if hint != object.KindNone && o.kind != hint {
		return object.KindNone, nil, fmt.Errorf("store: object %v is a %v, wanted %v", id, o.kind, hint)
	}
	return o.kind, o.data, nil
}

func (s *MemStore) PersistPack(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.packs = append(s.packs, cp)
	return nil
}

// Packs returns the packs persisted so far.
func (s *MemStore) Packs() [][]byte {
	return s.packs
}
