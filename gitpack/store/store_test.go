package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pinpt/gitpack/gitpack/object"
)

func TestMemStoreRoundTrip(t *testing.T) {
	s := NewMemStore()
	id := s.Add(object.KindBlob, []byte("hello\n"))
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", id.String())

	kind, data, err := s.Retrieve(id, object.KindNone)
	assert.NoError(t, err)
	assert.Equal(t, object.KindBlob, kind)
	assert.Equal(t, []byte("hello\n"), data)
}

func TestMemStoreKindHint(t *testing.T) {
	s := NewMemStore()
	id := s.Add(object.KindBlob, []byte("x"))

	_, _, err := s.Retrieve(id, object.KindBlob)
	assert.NoError(t, err)
	_, _, err = s.Retrieve(id, object.KindTree)
	assert.Error(t, err)
}

func TestMemStoreNotFound(t *testing.T) {
	s := NewMemStore()
	var id object.ID
	id[0] = 0x42
	_, _, err := s.Retrieve(id, object.KindNone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStorePackedFlag(t *testing.T) {
	s := NewMemStore()
	id := s.Add(object.KindBlob, []byte("x"))

	packed, err := s.FindPacked(id)
	assert.NoError(t, err)
	assert.False(t, packed)

	s.MarkPacked(id)
	packed, err = s.FindPacked(id)
	assert.NoError(t, err)
	assert.True(t, packed)

	var absent object.ID
	packed, err = s.FindPacked(absent)
	assert.NoError(t, err)
	assert.False(t, packed)
}

func TestMemStorePersistPackCopies(t *testing.T) {
	s := NewMemStore()
	buf := []byte{1, 2, 3}
	assert.NoError(t, s.PersistPack(buf))
	buf[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, s.Packs()[0])
}

func TestDiskStoreSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenDiskStore(dir)
	assert.NoError(t, err)

	blobID := s.Add(object.KindBlob, []byte("hello\n"))
	treeID := s.Add(object.KindTree, []byte("100644 a\x00aaaaaaaaaaaaaaaaaaaa"))
	s.MarkPacked(blobID)
	assert.NoError(t, s.Save())

	re, err := OpenDiskStore(dir)
	assert.NoError(t, err)

	kind, data, err := re.Retrieve(blobID, object.KindBlob)
	assert.NoError(t, err)
	assert.Equal(t, object.KindBlob, kind)
	assert.Equal(t, []byte("hello\n"), data)

	kind, _, err = re.Retrieve(treeID, object.KindNone)
	assert.NoError(t, err)
	assert.Equal(t, object.KindTree, kind)

	packed, err := re.FindPacked(blobID)
	assert.NoError(t, err)
	assert.True(t, packed)
	packed, err = re.FindPacked(treeID)
	assert.NoError(t, err)
	assert.False(t, packed)
}

func TestDiskStoreDedupesContent(t *testing.T) {
	s, err := OpenDiskStore(t.TempDir())
	assert.NoError(t, err)

	// Same bytes under two kinds share one data record.
	a := s.Add(object.KindBlob, []byte("shared"))
	b := s.Add(object.KindCommit, []byte("shared"))
	assert.NotEqual(t, a, b)
	assert.Len(t, s.data, 1)
	assert.Len(t, s.index, 2)
}

func TestDiskStoreEmptyDir(t *testing.T) {
	s, err := OpenDiskStore(t.TempDir())
	assert.NoError(t, err)

	var id object.ID
	_, _, err = s.Retrieve(id, object.KindNone)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Save())
}

func TestDiskStorePersistPack(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenDiskStore(dir)
	assert.NoError(t, err)

	pack := make([]byte, 32)
	for i := range pack {
		pack[i] = byte(i)
	}
	assert.NoError(t, s.PersistPack(pack))

	name := "pack-0c0d0e0f101112131415161718191a1b1c1d1e1f.pack"
	got, err := os.ReadFile(filepath.Join(dir, "packs", name))
	assert.NoError(t, err)
	assert.Equal(t, pack, got)

	assert.Error(t, s.PersistPack(make([]byte, 10)))
}
