package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/tinylib/msgp/msgp"

	"github.com/pinpt/gitpack/gitpack/object"
)

// DiskStore is a Store persisted under a single directory. Object bytes
// are deduplicated by xxhash content key in a data file, a companion index
// file maps object ids to kind, content key and packed flag, and completed
// packs are written under packs/. Both files are msgp streams written to a
// temp file and renamed into place.
type DiskStore struct {
	dir string

	index map[object.ID]diskIndexRecord
	data  map[uint64][]byte
}

type diskIndexRecord struct {
	Kind    object.Kind
	DataKey uint64
	Packed  bool
}

const (
	indexFile = "objects.idx"
	dataFile  = "objects.dat"
	packsDir  = "packs"
)

// OpenDiskStore loads the store at dir, creating it if empty.
func OpenDiskStore(dir string) (*DiskStore, error) {
	s := &DiskStore{dir: dir}
	s.index = map[object.ID]diskIndexRecord{}
	s.data = map[uint64][]byte{}
	if err := os.MkdirAll(filepath.Join(dir, packsDir), 0755); err != nil {
		return nil, err
	}
	if err := s.loadData(); err != nil {
		return nil, err
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DiskStore) loadData() error {
	f, err := os.Open(filepath.Join(s.dir, dataFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	r := msgp.NewReader(f)
	for {
		key, err := r.ReadUint64()
		if atEnd(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("store: read data record: %w", err)
		}
		data, err := r.ReadBytes(nil)
		if err != nil {
			return fmt.Errorf("store: read data record: %w", err)
		}
		s.data[key] = data
	}
}

func (s *DiskStore) loadIndex() error {
	f, err := os.Open(filepath.Join(s.dir, indexFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	r := msgp.NewReader(f)
	for {
		raw, err := r.ReadBytes(nil)
		if atEnd(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("store: read index record: %w", err)
		}
		if len(raw) != 20 {
			return fmt.Errorf("store: index record has %d-byte id", len(raw))
		}
		var id object.ID
		copy(id[:], raw)
		var rec diskIndexRecord
		kind, err := r.ReadUint8()
		if err != nil {
			return fmt.Errorf("store: read index record: %w", err)
		}
		rec.Kind = object.Kind(kind)
		if rec.DataKey, err = r.ReadUint64(); err != nil {
			return fmt.Errorf("store: read index record: %w", err)
		}
		if rec.Packed, err = r.ReadBool(); err != nil {
			return fmt.Errorf("store: read index record: %w", err)
		}
		s.index[id] = rec
	}
}

func atEnd(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, msgp.ErrShortBytes)
}

// Save serializes the index and data files.
func (s *DiskStore) Save() error {
	err := writeAtomic(filepath.Join(s.dir, dataFile), func(w *msgp.Writer) error {
		for key, data := range s.data {
			if err := w.WriteUint64(key); err != nil {
				return err
			}
			if err := w.WriteBytes(data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(s.dir, indexFile), func(w *msgp.Writer) error {
		for id, rec := range s.index {
			if err := w.WriteBytes(id[:]); err != nil {
				return err
			}
			if err := w.WriteUint8(byte(rec.Kind)); err != nil {
				return err
			}
			if err := w.WriteUint64(rec.DataKey); err != nil {
				return err
			}
			if err := w.WriteBool(rec.Packed); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeAtomic(loc string, fill func(*msgp.Writer) error) error {
	f, err := os.Create(loc + ".tmp")
	if err != nil {
		return err
	}
	w := msgp.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(loc+".tmp", loc)
}

// Add stores a materialized object and returns its id.
func (s *DiskStore) Add(kind object.Kind, data []byte) object.ID {
	id := object.Hash(kind, data)
	key := xxhash.Sum64(data)
	s.data[key] = data
	rec := s.index[id]
	rec.Kind = kind
	rec.DataKey = key
	s.index[id] = rec
	return id
}

// MarkPacked records that the object already lives in a durable pack.
func (s *DiskStore) MarkPacked(id object.ID) {
	rec, ok := s.index[id]
	if !ok {
		return
	}
	rec.Packed = true
	s.index[id] = rec
}

func (s *DiskStore) FindPacked(id object.ID) (bool, error) {
	rec, ok := s.index[id]
	return ok && rec.Packed, nil
}

func (s *DiskStore) Retrieve(id object.ID, hint object.Kind) (object.Kind, []byte, error) {
	rec, ok := s.index[id]
	if !ok {
		return object.KindNone, nil, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	if hint != object.KindNone && rec.Kind != hint {
		return object.KindNone, nil, fmt.Errorf("store: object %v is a %v, wanted %v", id, rec.Kind, hint)
	}
	data, ok := s.data[rec.DataKey]
	if !ok {
		return object.KindNone, nil, fmt.Errorf("store: data missing for object %v key %x", id, rec.DataKey)
	}
	return rec.Kind, data, nil
}

// PersistPack writes the pack under packs/, named by its trailing
// checksum.
func (s *DiskStore) PersistPack(data []byte) error {
	if len(data) < 20 {
		return fmt.Errorf("store: pack buffer too short to carry a checksum")
	}
	name := "pack-" + hex.EncodeToString(data[len(data)-20:]) + ".pack"
	loc := filepath.Join(s.dir, packsDir, name)
	if err := os.WriteFile(loc+".tmp", data, 0644); err != nil {
		return err
	}
	return os.Rename(loc+".tmp", loc)
}
